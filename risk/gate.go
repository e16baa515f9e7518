package risk

import (
	"sync/atomic"

	"tachyon/fixed"
)

// CheckResult identifies which gate check failed, or Approved.
type CheckResult uint8

const (
	Approved CheckResult = iota
	KillSwitchActive
	PositionLimitBreached
	CapitalLimitBreached
	OrderSizeTooLarge
	OrderRateExceeded
	FatFingerPrice
)

func (r CheckResult) String() string {
	switch r {
	case Approved:
		return "approved"
	case KillSwitchActive:
		return "kill_switch_active"
	case PositionLimitBreached:
		return "position_limit_breached"
	case CapitalLimitBreached:
		return "capital_limit_breached"
	case OrderSizeTooLarge:
		return "order_size_too_large"
	case OrderRateExceeded:
		return "order_rate_exceeded"
	default:
		return "fat_finger_price"
	}
}

// Limits holds every pre-trade cap the gate enforces. The mapstructure
// tags bind the risk_limits block of the JSON config file.
type Limits struct {
	MaxPositionPerInstrument int64          `mapstructure:"max_position_per_instrument"`
	MaxTotalPosition         int64          `mapstructure:"max_total_position"`
	MaxCapital               float64        `mapstructure:"max_capital"`
	MaxOrderSize             fixed.Quantity `mapstructure:"max_order_size"`
	MaxOrdersPerSecond       uint32         `mapstructure:"max_orders_per_second"`
	MaxPriceDeviationPct     float64        `mapstructure:"max_price_deviation_pct"` // fat finger threshold
	MaxDrawdownPct           float64        `mapstructure:"max_drawdown_pct"`        // drawdown that trips the kill switch
}

// DefaultLimits mirrors the simulator's stock configuration.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPerInstrument: 10000,
		MaxTotalPosition:         50000,
		MaxCapital:               10_000_000,
		MaxOrderSize:             1000,
		MaxOrdersPerSecond:       10000,
		MaxPriceDeviationPct:     5.0,
		MaxDrawdownPct:           2.0,
	}
}

const oneSecondNs fixed.Timestamp = 1_000_000_000

// Gate runs the six pre-trade checks. Except for the kill switch it is
// single-threaded state; CheckOrder belongs to the one thread that
// submits orders.
type Gate struct {
	limits    Limits
	positions *PositionTracker

	killSwitch atomic.Bool

	// precomputed so the hot path multiplies instead of divides
	deviationThreshold float64
	drawdownThreshold  float64

	ordersInWindow  uint32
	rateWindowStart fixed.Timestamp

	peakPnL float64

	checksPerformed uint64
	checksRejected  uint64
}

func NewGate(limits Limits) *Gate {
	g := &Gate{
		limits:          limits,
		positions:       NewPositionTracker(),
		rateWindowStart: fixed.Now(),
	}
	g.precompute()
	return g
}

func (g *Gate) precompute() {
	g.deviationThreshold = g.limits.MaxPriceDeviationPct / 100.0
	g.drawdownThreshold = g.limits.MaxDrawdownPct / 100.0
}

// CheckOrder runs the checks in fixed order and returns on the first
// failure. The rate counter is incremented before the rate comparison,
// so a rejected order still consumes rate budget; that keeps the check
// to one branch and matches the reported throttle counts.
func (g *Gate) CheckOrder(req *fixed.OrderRequest, marketPrice fixed.Price) CheckResult {
	g.checksPerformed++

	// 1. kill switch
	if g.killSwitch.Load() {
		g.checksRejected++
		return KillSwitchActive
	}

	// 2. order size
	if req.Quantity > g.limits.MaxOrderSize {
		g.checksRejected++
		return OrderSizeTooLarge
	}

	// 3. position limits, per instrument and aggregate
	{
		current := g.positions.Position(req.Instrument)
		newPos := current
		if req.Side == fixed.Buy {
			newPos += int64(req.Quantity)
		} else {
			newPos -= int64(req.Quantity)
		}
		if abs64(newPos) > g.limits.MaxPositionPerInstrument {
			g.checksRejected++
			return PositionLimitBreached
		}
		delta := abs64(newPos) - abs64(current)
		if g.positions.TotalAbsolutePosition()+delta > g.limits.MaxTotalPosition {
			g.checksRejected++
			return PositionLimitBreached
		}
	}

	// 4. capital
	{
		orderValue := float64(req.Quantity) * float64(req.Price) / fixed.PriceScale
		if g.positions.CapitalUsed()+orderValue > g.limits.MaxCapital {
			g.checksRejected++
			return CapitalLimitBreached
		}
	}

	// 5. order rate, sliding one-second window
	{
		now := fixed.Now()
		if now-g.rateWindowStart >= oneSecondNs {
			g.rateWindowStart = now
			g.ordersInWindow = 0
		}
		g.ordersInWindow++
		if g.ordersInWindow > g.limits.MaxOrdersPerSecond {
			g.checksRejected++
			return OrderRateExceeded
		}
	}

	// 6. fat finger: |price - market| > market * threshold, skipped
	// when there is no market price yet
	if marketPrice > 0 {
		diff := req.Price - marketPrice
		if diff < 0 {
			diff = -diff
		}
		if float64(diff) > float64(marketPrice)*g.deviationThreshold {
			g.checksRejected++
			return FatFingerPrice
		}
	}

	return Approved
}

// ActivateKillSwitch makes every subsequent check fail closed.
func (g *Gate) ActivateKillSwitch()   { g.killSwitch.Store(true) }
func (g *Gate) DeactivateKillSwitch() { g.killSwitch.Store(false) }
func (g *Gate) KillSwitchOn() bool    { return g.killSwitch.Load() }

// OnPnLUpdate ratchets the running peak and trips the kill switch when
// drawdown from that peak exceeds the configured percentage.
func (g *Gate) OnPnLUpdate(totalPnL float64) {
	if totalPnL > g.peakPnL {
		g.peakPnL = totalPnL
	}
	if g.peakPnL > 0 {
		drawdown := (g.peakPnL - totalPnL) / g.peakPnL
		if drawdown > g.drawdownThreshold {
			g.ActivateKillSwitch()
		}
	}
}

// ResetRateWindow restarts the sliding window, for tests and reloads.
func (g *Gate) ResetRateWindow() {
	g.ordersInWindow = 0
	g.rateWindowStart = fixed.Now()
}

// SetLimits swaps the limit set and recomputes derived thresholds.
func (g *Gate) SetLimits(limits Limits) {
	g.limits = limits
	g.precompute()
}

func (g *Gate) Limits() Limits              { return g.limits }
func (g *Gate) Positions() *PositionTracker { return g.positions }
func (g *Gate) ChecksPerformed() uint64     { return g.checksPerformed }
func (g *Gate) ChecksRejected() uint64      { return g.checksRejected }

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
