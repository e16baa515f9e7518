package book

import (
	"github.com/tidwall/btree"

	"tachyon/fixed"
	"tachyon/infra/memory"
)

const (
	// MaxTradesPerMatch caps the trades recorded by one matching call.
	// The scratch buffer is sized to it and a walk stops at the cap.
	MaxTradesPerMatch = 64

	// DefaultPoolSize is the resting-order capacity of one book.
	DefaultPoolSize = 65536
)

// Book is a price-time-priority order book for a single instrument.
//
// Invariants held between calls:
//   - every id in the lookup map is linked into exactly one level
//   - level TotalQuantity equals the sum of residuals over its FIFO
//   - cached best bid/ask mirror the extreme keys of each side (0 when
//     a side is empty)
//   - bids and asks never cross after a matching call returns
type Book struct {
	instrument fixed.InstrumentID
	pool       *memory.Slab[Entry]

	bids btree.Map[fixed.Price, *PriceLevel] // iterated descending
	asks btree.Map[fixed.Price, *PriceLevel] // iterated ascending

	orders map[fixed.OrderID]memory.Ref

	bestBid    fixed.Price
	bestAsk    fixed.Price
	bestBidQty fixed.Quantity
	bestAskQty fixed.Quantity

	// scratch for the current matching call; the returned slice views
	// this array and is valid until the next AddOrder/ModifyOrder.
	trades [MaxTradesPerMatch]fixed.Trade
}

// New builds an empty book. poolSize bounds resting orders; zero picks
// the default.
func New(instrument fixed.InstrumentID, poolSize int) *Book {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Book{
		instrument: instrument,
		pool:       memory.NewSlab[Entry](poolSize),
		orders:     make(map[fixed.OrderID]memory.Ref, poolSize),
	}
}

// AddOrder runs the incoming order through matching and, for limit
// residuals, rests it. The returned trades view is overwritten by the
// next matching call. A nil return means the order was dropped without
// touching the book: the slab was exhausted, or a FOK could not fill
// completely.
func (b *Book) AddOrder(id fixed.OrderID, side fixed.Side, typ fixed.OrderType,
	price fixed.Price, quantity fixed.Quantity, ts fixed.Timestamp) []fixed.Trade {

	ref := b.pool.Alloc()
	if ref == memory.NilRef {
		return nil
	}
	e := b.pool.At(ref)
	*e = Entry{
		ID:         id,
		Instrument: b.instrument,
		Side:       side,
		Type:       typ,
		Status:     fixed.StatusNew,
		Price:      price,
		Quantity:   quantity,
		Timestamp:  ts,
		prev:       memory.NilRef,
		next:       memory.NilRef,
	}
	b.orders[id] = ref

	return b.match(ref)
}

func (b *Book) match(ref memory.Ref) []fixed.Trade {
	e := b.pool.At(ref)

	// FOK is two-phase: prove full satisfiability before touching any
	// resting order, so a reject leaves the book byte-identical.
	if e.Type == fixed.FOK && !b.fokFillable(e) {
		e.Status = fixed.StatusCancelled
		delete(b.orders, e.ID)
		b.pool.Free(ref)
		return nil
	}

	n := 0
	b.walk(e, &n)

	switch rem := e.Remaining(); {
	case rem > 0 && e.Type == fixed.Limit:
		if e.FilledQuantity > 0 {
			e.Status = fixed.StatusPartiallyFilled
		} else {
			e.Status = fixed.StatusNew
		}
		b.rest(ref)
	case rem > 0:
		// Market / IOC residual is cancelled. FOK cannot reach here
		// once fokFillable approved the walk.
		if e.FilledQuantity > 0 {
			e.Status = fixed.StatusPartiallyFilled
		} else {
			e.Status = fixed.StatusCancelled
		}
		delete(b.orders, e.ID)
		b.pool.Free(ref)
	default:
		e.Status = fixed.StatusFilled
		delete(b.orders, e.ID)
		b.pool.Free(ref)
	}

	return b.trades[:n]
}

// walk consumes the opposite side best-first, head-to-tail within each
// level, until the order is filled, the price stops being marketable,
// or the trade cap is hit.
func (b *Book) walk(e *Entry, n *int) {
	opposite := &b.asks
	if e.Side == fixed.Sell {
		opposite = &b.bids
	}

	for *n < MaxTradesPerMatch && e.Remaining() > 0 {
		price, lvl, ok := bestOf(opposite, e.Side)
		if !ok {
			break
		}
		if e.Type != fixed.Market && !marketable(e.Side, e.Price, price) {
			break
		}

		b.consumeLevel(e, lvl, n)

		if lvl.empty() {
			opposite.Delete(price)
		} else {
			// level survived: the incoming order is done or capped
			break
		}
	}

	if e.Side == fixed.Buy {
		b.refreshBestAsk()
	} else {
		b.refreshBestBid()
	}
}

// bestOf returns the most aggressive level on the side opposite the
// taker: min ask for a buyer, max bid for a seller.
func bestOf(m *btree.Map[fixed.Price, *PriceLevel], taker fixed.Side) (fixed.Price, *PriceLevel, bool) {
	if taker == fixed.Buy {
		return m.Min()
	}
	return m.Max()
}

func marketable(taker fixed.Side, limit, level fixed.Price) bool {
	if taker == fixed.Buy {
		return level <= limit
	}
	return level >= limit
}

func (b *Book) consumeLevel(e *Entry, lvl *PriceLevel, n *int) {
	for *n < MaxTradesPerMatch {
		front := lvl.front()
		if front == memory.NilRef {
			return
		}
		rem := e.Remaining()
		if rem == 0 {
			return
		}

		resting := b.pool.At(front)
		fill := resting.Remaining()
		if rem < fill {
			fill = rem
		}

		tr := &b.trades[*n]
		*n++
		if e.Side == fixed.Buy {
			tr.BuyerOrderID = e.ID
			tr.SellerOrderID = resting.ID
		} else {
			tr.BuyerOrderID = resting.ID
			tr.SellerOrderID = e.ID
		}
		tr.Instrument = b.instrument
		tr.Price = resting.Price // resting order sets the trade price
		tr.Quantity = fill
		tr.Timestamp = e.Timestamp

		e.FilledQuantity += fill

		if fill == resting.Remaining() {
			// unlink before recording the fill so remove still sees
			// the residual and deducts it from the level aggregate
			resting.Status = fixed.StatusFilled
			lvl.remove(b.pool, front)
			resting.FilledQuantity += fill
			delete(b.orders, resting.ID)
			b.pool.Free(front)
		} else {
			resting.FilledQuantity += fill
			resting.Status = fixed.StatusPartiallyFilled
			lvl.TotalQuantity -= fill
		}
	}
}

// fokFillable walks the opposite side read-only and reports whether the
// order can fill completely within the trade cap.
func (b *Book) fokFillable(e *Entry) bool {
	iter := b.asks.Scan
	if e.Side == fixed.Sell {
		iter = b.bids.Reverse
	}

	var available fixed.Quantity
	ordersNeeded := 0
	fillable := false

	iter(func(price fixed.Price, lvl *PriceLevel) bool {
		if !marketable(e.Side, e.Price, price) {
			return false
		}
		for ref := lvl.front(); ref != memory.NilRef; ref = b.pool.At(ref).next {
			ordersNeeded++
			if ordersNeeded > MaxTradesPerMatch {
				return false
			}
			available += b.pool.At(ref).Remaining()
			if available >= e.Quantity {
				fillable = true
				return false
			}
		}
		return true
	})

	return fillable
}

// rest links a limit residual into its side, creating the level on
// first use, and patches the cached BBO.
func (b *Book) rest(ref memory.Ref) {
	e := b.pool.At(ref)
	if e.Side == fixed.Buy {
		lvl, ok := b.bids.Get(e.Price)
		if !ok {
			lvl = newLevel(e.Price)
			b.bids.Set(e.Price, lvl)
		}
		lvl.add(b.pool, ref)
		if e.Price > b.bestBid || b.bestBidQty == 0 {
			b.bestBid = e.Price
			b.bestBidQty = lvl.TotalQuantity
		} else if e.Price == b.bestBid {
			b.bestBidQty = lvl.TotalQuantity
		}
	} else {
		lvl, ok := b.asks.Get(e.Price)
		if !ok {
			lvl = newLevel(e.Price)
			b.asks.Set(e.Price, lvl)
		}
		lvl.add(b.pool, ref)
		if (b.bestAskQty == 0) || e.Price < b.bestAsk {
			b.bestAsk = e.Price
			b.bestAskQty = lvl.TotalQuantity
		} else if e.Price == b.bestAsk {
			b.bestAskQty = lvl.TotalQuantity
		}
	}
}

// CancelOrder removes a resting order in O(1). Returns false when the
// id is unknown.
func (b *Book) CancelOrder(id fixed.OrderID) bool {
	ref, ok := b.orders[id]
	if !ok {
		return false
	}
	e := b.pool.At(ref)
	e.Status = fixed.StatusCancelled
	b.unlink(ref)
	delete(b.orders, id)
	b.pool.Free(ref)
	return true
}

func (b *Book) unlink(ref memory.Ref) {
	e := b.pool.At(ref)
	if e.Side == fixed.Buy {
		if lvl, ok := b.bids.Get(e.Price); ok {
			lvl.remove(b.pool, ref)
			if lvl.empty() {
				b.bids.Delete(e.Price)
			}
		}
		b.refreshBestBid()
	} else {
		if lvl, ok := b.asks.Get(e.Price); ok {
			lvl.remove(b.pool, ref)
			if lvl.empty() {
				b.asks.Delete(e.Price)
			}
		}
		b.refreshBestAsk()
	}
}

// ModifyOrder is cancel-plus-add: the order keeps its id, loses its
// time priority, and may match on re-entry.
func (b *Book) ModifyOrder(id fixed.OrderID, newPrice fixed.Price, newQuantity fixed.Quantity) []fixed.Trade {
	ref, ok := b.orders[id]
	if !ok {
		return nil
	}
	e := b.pool.At(ref)
	side, typ, ts := e.Side, e.Type, e.Timestamp

	b.unlink(ref)
	delete(b.orders, id)
	b.pool.Free(ref)

	return b.AddOrder(id, side, typ, newPrice, newQuantity, ts)
}

func (b *Book) refreshBestBid() {
	if price, lvl, ok := b.bids.Max(); ok {
		b.bestBid = price
		b.bestBidQty = lvl.TotalQuantity
	} else {
		b.bestBid = 0
		b.bestBidQty = 0
	}
}

func (b *Book) refreshBestAsk() {
	if price, lvl, ok := b.asks.Min(); ok {
		b.bestAsk = price
		b.bestAskQty = lvl.TotalQuantity
	} else {
		b.bestAsk = 0
		b.bestAskQty = 0
	}
}

func (b *Book) BestBid() fixed.Price            { return b.bestBid }
func (b *Book) BestAsk() fixed.Price            { return b.bestAsk }
func (b *Book) BestBidQuantity() fixed.Quantity { return b.bestBidQty }
func (b *Book) BestAskQuantity() fixed.Quantity { return b.bestAskQty }
func (b *Book) Instrument() fixed.InstrumentID  { return b.instrument }
func (b *Book) OrderCount() int                 { return len(b.orders) }
func (b *Book) BidLevels() int                  { return b.bids.Len() }
func (b *Book) AskLevels() int                  { return b.asks.Len() }

// Spread in price ticks; zero when either side is empty.
func (b *Book) Spread() fixed.Price {
	if b.bestBidQty == 0 || b.bestAskQty == 0 {
		return 0
	}
	return b.bestAsk - b.bestBid
}

// DepthEntry is one aggregated level of the depth snapshot.
type DepthEntry struct {
	Price      fixed.Price
	Quantity   fixed.Quantity
	OrderCount uint32
}

// Depth fills both sides best to worst, bounded by the slice capacities.
// Returns the number of levels written per side.
func (b *Book) Depth(bids, asks []DepthEntry) (int, int) {
	nb := 0
	b.bids.Reverse(func(price fixed.Price, lvl *PriceLevel) bool {
		if nb >= len(bids) {
			return false
		}
		bids[nb] = DepthEntry{Price: price, Quantity: lvl.TotalQuantity, OrderCount: lvl.OrderCount}
		nb++
		return true
	})
	na := 0
	b.asks.Scan(func(price fixed.Price, lvl *PriceLevel) bool {
		if na >= len(asks) {
			return false
		}
		asks[na] = DepthEntry{Price: price, Quantity: lvl.TotalQuantity, OrderCount: lvl.OrderCount}
		na++
		return true
	})
	return nb, na
}

// VWAP over the top levels of one side. Zero when the side is empty.
func (b *Book) VWAP(side fixed.Side, levels int) float64 {
	var value, qty float64
	visit := func(price fixed.Price, lvl *PriceLevel) bool {
		if levels <= 0 {
			return false
		}
		levels--
		value += float64(price) * float64(lvl.TotalQuantity)
		qty += float64(lvl.TotalQuantity)
		return true
	}
	if side == fixed.Buy {
		b.bids.Reverse(visit)
	} else {
		b.asks.Scan(visit)
	}
	if qty == 0 {
		return 0
	}
	return value / qty
}
