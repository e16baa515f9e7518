package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tachyon/fixed"
)

func TestLongRoundTrip(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(0, fixed.Buy, 100, 10000) // 100 @ 100.00
	tr.OnFill(0, fixed.Buy, 100, 10200) // 100 @ 102.00

	require.Equal(t, int64(200), tr.Position(0))
	assert.InDelta(t, 101.0, tr.AvgPrice(0), 1e-9)

	tr.OnFill(0, fixed.Sell, 200, 10300) // close at 103.00
	require.Equal(t, int64(0), tr.Position(0))
	assert.InDelta(t, 200*(103.0-101.0), tr.RealizedPnL(), 1e-9)
	assert.Zero(t, tr.AvgPrice(0))
}

func TestShortRoundTrip(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(1, fixed.Sell, 50, 20000)
	require.Equal(t, int64(-50), tr.Position(1))
	assert.InDelta(t, 200.0, tr.AvgPrice(1), 1e-9)

	tr.OnFill(1, fixed.Buy, 50, 19000) // cover at 190.00
	require.Equal(t, int64(0), tr.Position(1))
	assert.InDelta(t, 50*(200.0-190.0), tr.RealizedPnL(), 1e-9)
}

func TestFlipLongToShort(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(0, fixed.Buy, 100, 10000)
	tr.OnFill(0, fixed.Sell, 150, 10500) // close 100, open short 50 at 105.00

	require.Equal(t, int64(-50), tr.Position(0))
	assert.InDelta(t, 100*(105.0-100.0), tr.RealizedPnL(), 1e-9)
	assert.InDelta(t, 105.0, tr.AvgPrice(0), 1e-9, "fresh average at the flip price")
}

func TestNetZeroAdditivity(t *testing.T) {
	tr := NewPositionTracker()
	// buys: 10@100, 20@101, sells: 15@102, 15@103; net zero
	tr.OnFill(0, fixed.Buy, 10, 10000)
	tr.OnFill(0, fixed.Buy, 20, 10100)
	tr.OnFill(0, fixed.Sell, 15, 10200)
	tr.OnFill(0, fixed.Sell, 15, 10300)

	require.Equal(t, int64(0), tr.Position(0))

	avg := (10*100.0 + 20*101.0) / 30.0
	want := 15*(102.0-avg) + 15*(103.0-avg)
	assert.InDelta(t, want, tr.RealizedPnL(), 1e-9)
}

func TestUnrealizedNeedsMark(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(0, fixed.Buy, 10, 10000)
	assert.Zero(t, tr.UnrealizedPnL(), "no mark price yet")

	tr.UpdateMarkPrice(0, 10500)
	assert.InDelta(t, 10*(105.0-100.0), tr.UnrealizedPnL(), 1e-9)
	assert.InDelta(t, tr.RealizedPnL()+tr.UnrealizedPnL(), tr.TotalPnL(), 1e-9)
}

func TestShortUnrealized(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(2, fixed.Sell, 10, 10000)
	tr.UpdateMarkPrice(2, 9500)
	assert.InDelta(t, 10*(100.0-95.0), tr.UnrealizedPnL(), 1e-9)
}

func TestCapitalUsedPrefersMark(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(0, fixed.Buy, 10, 10000)
	assert.InDelta(t, 10*100.0, tr.CapitalUsed(), 1e-9, "falls back to avg entry")

	tr.UpdateMarkPrice(0, 12000)
	assert.InDelta(t, 10*120.0, tr.CapitalUsed(), 1e-9)
}

func TestTotalAbsolutePosition(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(0, fixed.Buy, 10, 10000)
	tr.OnFill(1, fixed.Sell, 25, 10000)
	assert.Equal(t, int64(35), tr.TotalAbsolutePosition())
}

func TestOutOfRangeInstrumentIgnored(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(fixed.MaxInstruments, fixed.Buy, 10, 10000)
	assert.Equal(t, int64(0), tr.TotalAbsolutePosition())
}

func TestReset(t *testing.T) {
	tr := NewPositionTracker()
	tr.OnFill(0, fixed.Buy, 10, 10000)
	tr.UpdateMarkPrice(0, 11000)
	tr.Reset()
	assert.Equal(t, int64(0), tr.Position(0))
	assert.Zero(t, tr.TotalPnL())
}
