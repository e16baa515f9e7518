package strategy

import (
	"math"

	"tachyon/fixed"
	"tachyon/infra/window"
)

// MarketMakerParams configures the quoting policy.
type MarketMakerParams struct {
	Instrument    fixed.InstrumentID
	BaseSpreadBps float64
	MaxInventory  int64
	OrderSize     fixed.Quantity
	SkewFactor    float64
	BaseOrderID   fixed.OrderID
}

func DefaultMarketMakerParams() MarketMakerParams {
	return MarketMakerParams{
		BaseSpreadBps: 10.0,
		MaxInventory:  100,
		OrderSize:     10,
		SkewFactor:    0.5,
		BaseOrderID:   100000,
	}
}

// MarketMaker posts symmetric quotes around fair value. The spread
// widens with rolling volatility and the quotes skew against inventory;
// at the inventory limit it stops quoting and flattens aggressively.
type MarketMaker struct {
	orderScratch
	params MarketMakerParams

	inventory int64
	bestBid   fixed.Price
	bestAsk   fixed.Price
	fairValue fixed.Price
	spreadBps float64
	hasBBO    bool

	midPrices *window.Window[float64]
}

func NewMarketMaker(params MarketMakerParams) *MarketMaker {
	m := &MarketMaker{
		params:    params,
		midPrices: window.New[float64](256),
	}
	m.nextID = params.BaseOrderID
	return m
}

func (m *MarketMaker) Name() string { return "MarketMaker" }

func (m *MarketMaker) OnMarketData(md *fixed.MarketDataMessage) {
	if md.Instrument != m.params.Instrument {
		return
	}
	if md.BidPrice > 0 && md.AskPrice > 0 {
		m.observeBBO(md.BidPrice, md.AskPrice)
	}
}

func (m *MarketMaker) OnOrderBookUpdate(instrument fixed.InstrumentID,
	bestBid fixed.Price, bidQty fixed.Quantity,
	bestAsk fixed.Price, askQty fixed.Quantity) {
	if instrument != m.params.Instrument {
		return
	}
	if bestBid > 0 && bestAsk > 0 {
		m.observeBBO(bestBid, bestAsk)
	}
}

func (m *MarketMaker) observeBBO(bid, ask fixed.Price) {
	m.bestBid = bid
	m.bestAsk = ask
	m.hasBBO = true
	m.midPrices.PushBack(float64(bid+ask) / 2)
	m.fairValue = mid(bid, ask)
	m.computeSpread()
}

func (m *MarketMaker) OnTrade(trade *fixed.Trade) {}

func (m *MarketMaker) OnExecutionReport(report *fixed.ExecutionReport) {
	if report.Instrument != m.params.Instrument {
		return
	}
	if report.Status == fixed.StatusFilled || report.Status == fixed.StatusPartiallyFilled {
		if report.Side == fixed.Buy {
			m.inventory += int64(report.FilledQuantity)
		} else {
			m.inventory -= int64(report.FilledQuantity)
		}
	}
}

func (m *MarketMaker) OnTimer(now fixed.Timestamp) {}

func (m *MarketMaker) GenerateOrders() []fixed.OrderRequest {
	m.reset()
	if !m.hasBBO || m.fairValue <= 0 {
		return nil
	}

	absInv := m.inventory
	if absInv < 0 {
		absInv = -absInv
	}

	// at the limit: one aggressive flattening order, no quotes
	if absInv >= m.params.MaxInventory {
		req := fixed.OrderRequest{
			ID:         m.allocID(),
			Instrument: m.params.Instrument,
			Type:       fixed.Limit,
			Quantity:   fixed.Quantity(absInv),
			Timestamp:  fixed.Now(),
		}
		if m.inventory > 0 {
			req.Side = fixed.Sell
			req.Price = m.bestBid // hit the bid
		} else {
			req.Side = fixed.Buy
			req.Price = m.bestAsk // lift the ask
		}
		m.emit(req)
		return m.orders()
	}

	spreadTicks := m.spreadBps * float64(m.fairValue) / 10000.0
	halfSpread := spreadTicks / 2.0
	skew := m.params.SkewFactor * float64(m.inventory) * spreadTicks / float64(m.params.MaxInventory)

	bidPrice := fixed.Price(float64(m.fairValue) - halfSpread - skew)
	askPrice := fixed.Price(float64(m.fairValue) + halfSpread - skew)
	if bidPrice <= 0 {
		bidPrice = 1
	}
	if askPrice <= bidPrice {
		askPrice = bidPrice + 1
	}

	now := fixed.Now()
	m.emit(fixed.OrderRequest{
		ID:         m.allocID(),
		Instrument: m.params.Instrument,
		Side:       fixed.Buy,
		Type:       fixed.Limit,
		Price:      bidPrice,
		Quantity:   m.params.OrderSize,
		Timestamp:  now,
	})
	m.emit(fixed.OrderRequest{
		ID:         m.allocID(),
		Instrument: m.params.Instrument,
		Side:       fixed.Sell,
		Type:       fixed.Limit,
		Price:      askPrice,
		Quantity:   m.params.OrderSize,
		Timestamp:  now,
	})
	return m.orders()
}

// computeSpread scales the base spread by realized volatility of mid
// returns, clamped to a 1x..5x multiplier.
func (m *MarketMaker) computeSpread() {
	m.spreadBps = m.params.BaseSpreadBps

	if m.midPrices.Len() < 10 {
		return
	}

	var sum, sumSq float64
	n := m.midPrices.Len() - 1
	for i := 1; i <= n; i++ {
		prev := m.midPrices.At(i - 1)
		ret := (m.midPrices.At(i) - prev) / prev
		sum += ret
		sumSq += ret * ret
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	vol := math.Sqrt(math.Max(0, variance))

	multiplier := 1.0 + vol*10000.0
	if multiplier > 5.0 {
		multiplier = 5.0
	}
	m.spreadBps *= multiplier
}

func (m *MarketMaker) Inventory() int64   { return m.inventory }
func (m *MarketMaker) SpreadBps() float64 { return m.spreadBps }
