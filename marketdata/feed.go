package marketdata

import (
	"fmt"
	"math/rand"

	"tachyon/fixed"
)

// Instrument is one simulated symbol in the feed.
type Instrument struct {
	ID         fixed.InstrumentID
	Symbol     string
	MidPrice   float64 // floating point only inside the generator
	Volatility float64 // per-tick
	Spread     float64
	BaseSize   fixed.Quantity
}

// Feed generates synthetic FIX market data with random-walk pricing.
// Every newOrderEvery-th message is a new-order single ('D') so the
// instrument books downstream see order flow, not just quotes. The RNG
// seed is fixed, so a run is reproducible.
type Feed struct {
	instruments []Instrument
	rng         *rand.Rand
	msgCount    uint64
	cursor      int

	// reusable message buffer; NextMessage returns a view into it
	buf []byte

	newOrderEvery uint64
	nextFeedOrder fixed.OrderID
}

const feedSeed = 42

// NewFeed builds an empty feed with a deterministic RNG.
func NewFeed() *Feed {
	return &Feed{
		rng:           rand.New(rand.NewSource(feedSeed)),
		buf:           make([]byte, 0, 512),
		newOrderEvery: 16,
		nextFeedOrder: 700_000_000,
	}
}

// AddInstrument registers a symbol with its random-walk parameters.
func (f *Feed) AddInstrument(id fixed.InstrumentID, symbol string,
	initialPrice, volatility, spread float64, baseSize fixed.Quantity) {
	f.instruments = append(f.instruments, Instrument{
		ID:         id,
		Symbol:     symbol,
		MidPrice:   initialPrice,
		Volatility: volatility,
		Spread:     spread,
		BaseSize:   baseSize,
	})
}

// NextMessage advances the random walk for the next instrument (round
// robin) and renders one FIX message. The returned slice aliases the
// feed's internal buffer and is valid until the next call.
func (f *Feed) NextMessage() []byte {
	if len(f.instruments) == 0 {
		return nil
	}

	inst := &f.instruments[f.cursor]
	f.cursor = (f.cursor + 1) % len(f.instruments)

	move := inst.Volatility * inst.MidPrice * f.rng.NormFloat64()
	inst.MidPrice += move
	if inst.MidPrice < 0.01 {
		inst.MidPrice = 0.01
	}

	f.msgCount++
	if f.newOrderEvery > 0 && f.msgCount%f.newOrderEvery == 0 {
		return f.buildNewOrder(inst)
	}
	return f.buildSnapshot(inst)
}

func (f *Feed) buildSnapshot(inst *Instrument) []byte {
	half := inst.Spread / 2.0
	bid := inst.MidPrice - half
	ask := inst.MidPrice + half
	last := inst.MidPrice + inst.Spread*0.1*f.rng.NormFloat64()

	qtyFactor := 1 + uint64(absFloat(f.rng.NormFloat64()))
	bidQty := uint64(inst.BaseSize) * qtyFactor
	askQty := uint64(inst.BaseSize) * qtyFactor
	lastQty := uint64(inst.BaseSize) / 2

	f.buf = fmt.Appendf(f.buf[:0],
		"8=FIX.4.4|9=200|35=W|49=FEED|56=CLIENT|34=%d|55=%s|132=%.2f|133=%.2f|134=%d|135=%d|44=%.2f|38=%d|10=000|",
		f.msgCount, inst.Symbol, bid, ask, bidQty, askQty, last, lastQty)
	return f.buf
}

// buildNewOrder emits a limit order a little inside or outside the
// touch, alternating sides through the price draw.
func (f *Feed) buildNewOrder(inst *Instrument) []byte {
	offset := inst.Spread * (f.rng.Float64() - 0.5) * 4
	price := inst.MidPrice + offset
	if price < 0.01 {
		price = 0.01
	}
	side := '1' // buy
	if offset > 0 {
		side = '2'
	}
	qty := uint64(inst.BaseSize) / 4
	if qty == 0 {
		qty = 1
	}
	f.nextFeedOrder++

	f.buf = fmt.Appendf(f.buf[:0],
		"8=FIX.4.4|9=160|35=D|49=FEED|56=CLIENT|34=%d|11=%d|55=%s|54=%c|40=2|44=%.2f|38=%d|10=000|",
		f.msgCount, f.nextFeedOrder, inst.Symbol, side, price, qty)
	return f.buf
}

// MessagesGenerated counts every message emitted so far.
func (f *Feed) MessagesGenerated() uint64 { return f.msgCount }

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
