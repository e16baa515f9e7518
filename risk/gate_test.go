package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tachyon/fixed"
)

func req(side fixed.Side, qty fixed.Quantity, price fixed.Price) *fixed.OrderRequest {
	return &fixed.OrderRequest{
		ID:         1,
		Instrument: 0,
		Side:       side,
		Type:       fixed.Limit,
		Price:      price,
		Quantity:   qty,
		Timestamp:  fixed.Now(),
	}
}

func TestApprovedPath(t *testing.T) {
	g := NewGate(DefaultLimits())
	assert.Equal(t, Approved, g.CheckOrder(req(fixed.Buy, 100, 15000), 15000))
	assert.Equal(t, uint64(1), g.ChecksPerformed())
	assert.Equal(t, uint64(0), g.ChecksRejected())
}

func TestKillSwitchDominates(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOrderSize = 1 // everything else would also fail
	g := NewGate(limits)
	g.ActivateKillSwitch()

	r := req(fixed.Buy, 100, 999999)
	for i := 0; i < 5; i++ {
		assert.Equal(t, KillSwitchActive, g.CheckOrder(r, 15000))
	}

	g.DeactivateKillSwitch()
	assert.Equal(t, OrderSizeTooLarge, g.CheckOrder(r, 0))
}

func TestOrderSize(t *testing.T) {
	g := NewGate(DefaultLimits())
	assert.Equal(t, OrderSizeTooLarge, g.CheckOrder(req(fixed.Buy, 1001, 15000), 15000))
}

func TestPositionLimitPerInstrument(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPositionPerInstrument = 50
	g := NewGate(limits)

	assert.Equal(t, PositionLimitBreached, g.CheckOrder(req(fixed.Buy, 51, 15000), 15000))
	assert.Equal(t, Approved, g.CheckOrder(req(fixed.Buy, 50, 15000), 15000))

	// projected position accounts for the current one
	g.Positions().OnFill(0, fixed.Buy, 40, 15000)
	assert.Equal(t, PositionLimitBreached, g.CheckOrder(req(fixed.Buy, 11, 15000), 15000))
	assert.Equal(t, Approved, g.CheckOrder(req(fixed.Sell, 11, 15000), 15000), "selling reduces the projection")
}

func TestAggregatePositionLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPositionPerInstrument = 100
	limits.MaxTotalPosition = 120
	g := NewGate(limits)

	g.Positions().OnFill(0, fixed.Buy, 80, 15000)
	g.Positions().OnFill(1, fixed.Sell, 40, 15000)

	r := req(fixed.Buy, 10, 15000)
	r.Instrument = 2
	assert.Equal(t, PositionLimitBreached, g.CheckOrder(r, 15000), "aggregate 120 + 10 breaches")
}

func TestCapitalLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxCapital = 1000
	g := NewGate(limits)

	// 10 * 150.00 = 1500 > 1000
	assert.Equal(t, CapitalLimitBreached, g.CheckOrder(req(fixed.Buy, 10, 15000), 15000))
	assert.Equal(t, Approved, g.CheckOrder(req(fixed.Buy, 5, 15000), 15000))
}

func TestRateLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOrdersPerSecond = 3
	g := NewGate(limits)

	r := req(fixed.Buy, 1, 15000)
	for i := 0; i < 3; i++ {
		require.Equal(t, Approved, g.CheckOrder(r, 15000))
	}
	assert.Equal(t, OrderRateExceeded, g.CheckOrder(r, 15000))
	assert.Equal(t, OrderRateExceeded, g.CheckOrder(r, 15000),
		"rejected orders still consume rate budget")
}

func TestRateWindowResets(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOrdersPerSecond = 1
	g := NewGate(limits)

	r := req(fixed.Buy, 1, 15000)
	require.Equal(t, Approved, g.CheckOrder(r, 15000))
	require.Equal(t, OrderRateExceeded, g.CheckOrder(r, 15000))

	// age the window past one second of monotonic time
	g.rateWindowStart -= 2 * oneSecondNs
	assert.Equal(t, Approved, g.CheckOrder(r, 15000))
}

func TestFatFinger(t *testing.T) {
	g := NewGate(DefaultLimits()) // 5% deviation

	// market 150.00, order 165.00: 10% off
	res := g.CheckOrder(req(fixed.Buy, 10, 16500), 15000)
	assert.Equal(t, FatFingerPrice, res)

	before := g.Positions().TotalAbsolutePosition()
	assert.Equal(t, int64(0), before, "rejection leaves positions untouched")

	assert.Equal(t, Approved, g.CheckOrder(req(fixed.Buy, 10, 15700), 15000))
	assert.Equal(t, Approved, g.CheckOrder(req(fixed.Buy, 10, 16500), 0),
		"check skipped without a market price")
}

func TestDrawdownTripsKillSwitch(t *testing.T) {
	g := NewGate(DefaultLimits()) // 2% drawdown

	g.OnPnLUpdate(1000.0)
	require.False(t, g.KillSwitchOn())

	g.OnPnLUpdate(990.0) // 1% down
	require.False(t, g.KillSwitchOn())

	g.OnPnLUpdate(970.0) // 3% down from the 1000 peak
	require.True(t, g.KillSwitchOn())

	assert.Equal(t, KillSwitchActive, g.CheckOrder(req(fixed.Buy, 1, 15000), 15000))
}

func TestPeakOnlyRatchetsUp(t *testing.T) {
	g := NewGate(DefaultLimits())
	g.OnPnLUpdate(1000.0)
	g.OnPnLUpdate(995.0)
	g.OnPnLUpdate(996.0) // recovery does not lower the peak
	g.OnPnLUpdate(970.0) // still 3% below 1000
	assert.True(t, g.KillSwitchOn())
}

func TestCheckOrderNoAllocs(t *testing.T) {
	g := NewGate(DefaultLimits())
	r := req(fixed.Buy, 10, 15000)
	allocs := testing.AllocsPerRun(1000, func() {
		g.CheckOrder(r, 15000)
	})
	assert.Zero(t, allocs)
}

func BenchmarkCheckOrder(b *testing.B) {
	g := NewGate(DefaultLimits())
	r := req(fixed.Buy, 10, 15000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.CheckOrder(r, 15000)
	}
}
