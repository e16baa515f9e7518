package strategy

import (
	"tachyon/fixed"
	"tachyon/infra/window"
)

// MomentumParams configures the EMA crossover follower.
type MomentumParams struct {
	Instrument  fixed.InstrumentID
	FastWindow  int
	SlowWindow  int
	BreakoutBps float64
	OrderSize   fixed.Quantity
	BaseOrderID fixed.OrderID
}

func DefaultMomentumParams() MomentumParams {
	return MomentumParams{
		FastWindow:  10,
		SlowWindow:  30,
		BreakoutBps: 5.0,
		OrderSize:   10,
		BaseOrderID: 300000,
	}
}

type momentumState uint8

const (
	momFlat momentumState = iota
	momLong
	momShort
)

// Momentum runs a fast/slow EMA crossover. Entry requires the signal to
// clear the breakout threshold; an opposite-sign crossover exits.
type Momentum struct {
	orderScratch
	params MomentumParams

	fastEMA   float64
	slowEMA   float64
	fastAlpha float64
	slowAlpha float64
	signalBps float64

	position     int64
	tickCount    uint64
	currentPrice fixed.Price
	state        momentumState

	volumes   *window.Window[fixed.Quantity]
	avgVolume float64
}

func NewMomentum(params MomentumParams) *Momentum {
	m := &Momentum{
		params:    params,
		fastAlpha: 2.0 / (float64(params.FastWindow) + 1.0),
		slowAlpha: 2.0 / (float64(params.SlowWindow) + 1.0),
		volumes:   window.New[fixed.Quantity](256),
	}
	m.nextID = params.BaseOrderID
	return m
}

func (m *Momentum) Name() string { return "Momentum" }

func (m *Momentum) OnMarketData(md *fixed.MarketDataMessage) {
	if md.Instrument != m.params.Instrument {
		return
	}
	price := mid(md.BidPrice, md.AskPrice)
	if price <= 0 && md.LastPrice > 0 {
		price = md.LastPrice
	}
	if price <= 0 {
		return
	}
	m.currentPrice = price
	m.updateEMAs(float64(price))

	if md.LastQuantity > 0 {
		m.volumes.PushBack(md.LastQuantity)
	}
}

func (m *Momentum) OnOrderBookUpdate(instrument fixed.InstrumentID,
	bestBid fixed.Price, bidQty fixed.Quantity,
	bestAsk fixed.Price, askQty fixed.Quantity) {
	if instrument != m.params.Instrument {
		return
	}
	price := mid(bestBid, bestAsk)
	if price <= 0 {
		return
	}
	m.currentPrice = price
	m.updateEMAs(float64(price))
}

func (m *Momentum) OnTrade(trade *fixed.Trade) {
	if trade.Instrument != m.params.Instrument {
		return
	}
	m.volumes.PushBack(trade.Quantity)
}

func (m *Momentum) OnExecutionReport(report *fixed.ExecutionReport) {
	if report.Instrument != m.params.Instrument {
		return
	}
	if report.Status == fixed.StatusFilled || report.Status == fixed.StatusPartiallyFilled {
		if report.Side == fixed.Buy {
			m.position += int64(report.FilledQuantity)
		} else {
			m.position -= int64(report.FilledQuantity)
		}
	}
}

func (m *Momentum) OnTimer(now fixed.Timestamp) {}

func (m *Momentum) updateEMAs(price float64) {
	m.tickCount++
	if m.tickCount == 1 {
		m.fastEMA = price
		m.slowEMA = price
	} else {
		m.fastEMA = m.fastAlpha*price + (1-m.fastAlpha)*m.fastEMA
		m.slowEMA = m.slowAlpha*price + (1-m.slowAlpha)*m.slowEMA
	}

	if m.slowEMA > 1e-10 {
		m.signalBps = (m.fastEMA - m.slowEMA) / m.slowEMA * 10000.0
	} else {
		m.signalBps = 0
	}

	if m.volumes.Len() > 0 {
		var sum float64
		m.volumes.Do(func(v fixed.Quantity) { sum += float64(v) })
		m.avgVolume = sum / float64(m.volumes.Len())
	}
}

func (m *Momentum) GenerateOrders() []fixed.OrderRequest {
	m.reset()
	if m.tickCount < uint64(m.params.SlowWindow) || m.currentPrice <= 0 {
		return nil
	}

	now := fixed.Now()

	switch m.state {
	case momFlat:
		if m.signalBps > m.params.BreakoutBps {
			m.state = momLong
			m.enter(fixed.Buy, now)
		} else if m.signalBps < -m.params.BreakoutBps {
			m.state = momShort
			m.enter(fixed.Sell, now)
		}
	case momLong:
		if m.signalBps < 0 {
			m.state = momFlat
			if m.position > 0 {
				m.exit(fixed.Sell, fixed.Quantity(m.position), now)
			}
		}
	case momShort:
		if m.signalBps > 0 {
			m.state = momFlat
			if m.position < 0 {
				m.exit(fixed.Buy, fixed.Quantity(-m.position), now)
			}
		}
	}
	return m.orders()
}

func (m *Momentum) enter(side fixed.Side, now fixed.Timestamp) {
	m.emit(fixed.OrderRequest{
		ID:         m.allocID(),
		Instrument: m.params.Instrument,
		Side:       side,
		Type:       fixed.Limit,
		Price:      m.currentPrice,
		Quantity:   m.params.OrderSize,
		Timestamp:  now,
	})
}

func (m *Momentum) exit(side fixed.Side, qty fixed.Quantity, now fixed.Timestamp) {
	m.emit(fixed.OrderRequest{
		ID:         m.allocID(),
		Instrument: m.params.Instrument,
		Side:       side,
		Type:       fixed.Limit,
		Price:      m.currentPrice,
		Quantity:   qty,
		Timestamp:  now,
	})
}

func (m *Momentum) FastEMA() float64   { return m.fastEMA }
func (m *Momentum) SlowEMA() float64   { return m.slowEMA }
func (m *Momentum) SignalBps() float64 { return m.signalBps }
func (m *Momentum) Position() int64    { return m.position }
