package strategy

import (
	"math"

	"tachyon/fixed"
	"tachyon/infra/window"
)

// PairsParams configures the statistical arbitrage pair.
type PairsParams struct {
	InstrumentA    fixed.InstrumentID
	InstrumentB    fixed.InstrumentID
	HedgeRatio     float64
	LookbackWindow int
	EntryZ         float64
	ExitZ          float64
	OrderSize      fixed.Quantity
	BaseOrderID    fixed.OrderID
}

func DefaultPairsParams() PairsParams {
	return PairsParams{
		InstrumentB:    1,
		HedgeRatio:     1.0,
		LookbackWindow: 100,
		EntryZ:         2.0,
		ExitZ:          0.5,
		OrderSize:      10,
		BaseOrderID:    200000,
	}
}

type pairsState uint8

const (
	pairsFlat        pairsState = iota
	pairsLongSpread             // long A, short B
	pairsShortSpread            // short A, long B
)

// minSpreadSamples gates signal generation until the window has enough
// history for a meaningful z-score.
const minSpreadSamples = 20

// Pairs trades the spread A - ratio*B on its rolling z-score: sell the
// rich leg and buy the cheap one past the entry threshold, flatten both
// once the spread reverts inside the exit threshold.
type Pairs struct {
	orderScratch
	params PairsParams

	priceA fixed.Price
	priceB fixed.Price
	zScore float64

	positionA int64
	positionB int64
	state     pairsState

	spreads *window.Window[float64]
}

func NewPairs(params PairsParams) *Pairs {
	if params.LookbackWindow <= 0 {
		params.LookbackWindow = 100
	}
	p := &Pairs{
		params:  params,
		spreads: window.New[float64](params.LookbackWindow),
	}
	p.nextID = params.BaseOrderID
	return p
}

func (p *Pairs) Name() string { return "PairsTrading" }

func (p *Pairs) OnMarketData(md *fixed.MarketDataMessage) {
	price := mid(md.BidPrice, md.AskPrice)
	if price == 0 && md.LastPrice > 0 {
		price = md.LastPrice
	}
	p.observe(md.Instrument, price)
}

func (p *Pairs) OnOrderBookUpdate(instrument fixed.InstrumentID,
	bestBid fixed.Price, bidQty fixed.Quantity,
	bestAsk fixed.Price, askQty fixed.Quantity) {
	p.observe(instrument, mid(bestBid, bestAsk))
}

func (p *Pairs) observe(instrument fixed.InstrumentID, price fixed.Price) {
	switch instrument {
	case p.params.InstrumentA:
		p.priceA = price
	case p.params.InstrumentB:
		p.priceB = price
	default:
		return
	}
	if p.priceA > 0 && p.priceB > 0 {
		p.updateSpread()
	}
}

func (p *Pairs) updateSpread() {
	spread := float64(p.priceA) - p.params.HedgeRatio*float64(p.priceB)
	p.spreads.PushBack(spread)

	if p.spreads.Len() < minSpreadSamples {
		p.zScore = 0
		return
	}

	var sum, sumSq float64
	n := p.spreads.Len()
	for i := 0; i < n; i++ {
		v := p.spreads.At(i)
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	stddev := math.Sqrt(math.Max(0, variance))
	if stddev < 1e-10 {
		p.zScore = 0
		return
	}
	p.zScore = (spread - mean) / stddev
}

func (p *Pairs) OnTrade(trade *fixed.Trade) {}

func (p *Pairs) OnExecutionReport(report *fixed.ExecutionReport) {
	if report.Status != fixed.StatusFilled && report.Status != fixed.StatusPartiallyFilled {
		return
	}
	qty := int64(report.FilledQuantity)
	if report.Side == fixed.Sell {
		qty = -qty
	}
	switch report.Instrument {
	case p.params.InstrumentA:
		p.positionA += qty
	case p.params.InstrumentB:
		p.positionB += qty
	}
}

func (p *Pairs) OnTimer(now fixed.Timestamp) {}

func (p *Pairs) GenerateOrders() []fixed.OrderRequest {
	p.reset()
	if p.spreads.Len() < minSpreadSamples {
		return nil
	}

	now := fixed.Now()

	switch p.state {
	case pairsFlat:
		if p.zScore > p.params.EntryZ {
			// spread rich: sell A, buy B
			p.state = pairsShortSpread
			p.leg(fixed.Sell, p.params.InstrumentA, p.priceA, now)
			p.leg(fixed.Buy, p.params.InstrumentB, p.priceB, now)
		} else if p.zScore < -p.params.EntryZ {
			p.state = pairsLongSpread
			p.leg(fixed.Buy, p.params.InstrumentA, p.priceA, now)
			p.leg(fixed.Sell, p.params.InstrumentB, p.priceB, now)
		}
	case pairsLongSpread:
		if math.Abs(p.zScore) < p.params.ExitZ {
			p.state = pairsFlat
			p.flatten(now)
		}
	case pairsShortSpread:
		if math.Abs(p.zScore) < p.params.ExitZ {
			p.state = pairsFlat
			p.flatten(now)
		}
	}
	return p.orders()
}

func (p *Pairs) leg(side fixed.Side, instrument fixed.InstrumentID, price fixed.Price, now fixed.Timestamp) {
	p.emit(fixed.OrderRequest{
		ID:         p.allocID(),
		Instrument: instrument,
		Side:       side,
		Type:       fixed.Limit,
		Price:      price,
		Quantity:   p.params.OrderSize,
		Timestamp:  now,
	})
}

// flatten closes whatever is open on both legs.
func (p *Pairs) flatten(now fixed.Timestamp) {
	if p.positionA > 0 {
		p.emitClose(p.params.InstrumentA, fixed.Sell, p.positionA, p.priceA, now)
	} else if p.positionA < 0 {
		p.emitClose(p.params.InstrumentA, fixed.Buy, -p.positionA, p.priceA, now)
	}
	if p.positionB > 0 {
		p.emitClose(p.params.InstrumentB, fixed.Sell, p.positionB, p.priceB, now)
	} else if p.positionB < 0 {
		p.emitClose(p.params.InstrumentB, fixed.Buy, -p.positionB, p.priceB, now)
	}
}

func (p *Pairs) emitClose(instrument fixed.InstrumentID, side fixed.Side,
	qty int64, price fixed.Price, now fixed.Timestamp) {
	p.emit(fixed.OrderRequest{
		ID:         p.allocID(),
		Instrument: instrument,
		Side:       side,
		Type:       fixed.Limit,
		Price:      price,
		Quantity:   fixed.Quantity(qty),
		Timestamp:  now,
	})
}

func (p *Pairs) ZScore() float64  { return p.zScore }
func (p *Pairs) PositionA() int64 { return p.positionA }
func (p *Pairs) PositionB() int64 { return p.positionB }
