package fixed

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIsOneCacheLine(t *testing.T) {
	require.Equal(t, uintptr(CacheLine), unsafe.Sizeof(Order{}))
	require.Equal(t, uintptr(0), unsafe.Sizeof(Order{})%unsafe.Alignof(Order{}))
}

func TestPriceRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.01, 1, 150.50, 281.07, 9999.99, -3.25, -0.01} {
		got := ToFloat(ToPrice(v))
		assert.InDelta(t, v, got, 0.005, "round trip of %v", v)
	}
}

func TestPriceRounding(t *testing.T) {
	assert.Equal(t, Price(15050), ToPrice(150.50))
	assert.Equal(t, Price(1), ToPrice(0.005))
	assert.Equal(t, Price(-1), ToPrice(-0.005))
}

func TestOppositeSide(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestNowMonotonic(t *testing.T) {
	prev := Now()
	for i := 0; i < 10000; i++ {
		cur := Now()
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
