package book

import (
	"tachyon/fixed"
	"tachyon/infra/memory"
)

// Entry is the resident form of an order. It lives inside the slab pool
// for the life of the resting order and carries slab handles to its
// neighbors at the same price, so unlinking is O(1) without pointers.
// Entries never cross a queue.
type Entry struct {
	ID             fixed.OrderID
	Instrument     fixed.InstrumentID
	Side           fixed.Side
	Type           fixed.OrderType
	Status         fixed.OrderStatus
	Price          fixed.Price
	Quantity       fixed.Quantity
	FilledQuantity fixed.Quantity
	Timestamp      fixed.Timestamp

	prev memory.Ref
	next memory.Ref
}

// Remaining is the unfilled residual.
func (e *Entry) Remaining() fixed.Quantity {
	return e.Quantity - e.FilledQuantity
}

// PriceLevel is the FIFO queue of entries resting at one price.
// TotalQuantity aggregates residuals, not original quantities.
type PriceLevel struct {
	Price         fixed.Price
	TotalQuantity fixed.Quantity
	OrderCount    uint32

	head memory.Ref
	tail memory.Ref
}

func newLevel(price fixed.Price) *PriceLevel {
	return &PriceLevel{Price: price, head: memory.NilRef, tail: memory.NilRef}
}

// add appends at the tail: latest arrival, lowest time priority.
func (l *PriceLevel) add(pool *memory.Slab[Entry], ref memory.Ref) {
	e := pool.At(ref)
	e.prev = l.tail
	e.next = memory.NilRef
	if l.tail != memory.NilRef {
		pool.At(l.tail).next = ref
	} else {
		l.head = ref
	}
	l.tail = ref
	l.TotalQuantity += e.Remaining()
	l.OrderCount++
}

// remove unlinks an entry anywhere in the level in O(1).
func (l *PriceLevel) remove(pool *memory.Slab[Entry], ref memory.Ref) {
	e := pool.At(ref)
	if e.prev != memory.NilRef {
		pool.At(e.prev).next = e.next
	} else {
		l.head = e.next
	}
	if e.next != memory.NilRef {
		pool.At(e.next).prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev = memory.NilRef
	e.next = memory.NilRef

	rem := e.Remaining()
	if l.TotalQuantity >= rem {
		l.TotalQuantity -= rem
	} else {
		l.TotalQuantity = 0
	}
	l.OrderCount--
}

// front is the entry with the highest time priority.
func (l *PriceLevel) front() memory.Ref { return l.head }

func (l *PriceLevel) empty() bool { return l.head == memory.NilRef }
