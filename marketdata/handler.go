package marketdata

import (
	"tachyon/fixed"
	"tachyon/infra/spsc"
)

// Handler parses raw feed bytes and publishes normalized messages to
// the market-data ring. It is the producer side of that ring and must
// be driven by exactly one thread.
type Handler struct {
	out    *spsc.Ring[fixed.MarketDataMessage]
	parser Parser

	messagesProcessed uint64
	messagesDropped   uint64
}

func NewHandler(out *spsc.Ring[fixed.MarketDataMessage]) *Handler {
	return &Handler{out: out}
}

// ProcessMessage parses, normalizes, and enqueues one message. Returns
// false when the message is malformed, of an unknown type, or the ring
// is full; all three are counted as drops.
func (h *Handler) ProcessMessage(raw []byte) bool {
	if !h.parser.Parse(raw) {
		h.messagesDropped++
		return false
	}

	md := fixed.MarketDataMessage{Timestamp: fixed.Now()}

	mt := h.parser.MsgType()
	if len(mt) != 1 {
		h.messagesDropped++
		return false
	}

	switch mt[0] {
	case fixed.MsgSnapshot:
		md.MsgType = fixed.MsgSnapshot
		md.Instrument = SymbolToID(h.parser.Symbol())
		md.BidPrice = h.parser.BidPrice()
		md.AskPrice = h.parser.AskPrice()
		md.BidQuantity = h.parser.BidSize()
		md.AskQuantity = h.parser.AskSize()
		md.LastPrice = h.parser.Price()
		md.LastQuantity = h.parser.Quantity()
	case fixed.MsgExecution:
		md.MsgType = fixed.MsgExecution
		md.Instrument = SymbolToID(h.parser.Symbol())
		md.LastPrice = h.parser.Price()
		md.LastQuantity = h.parser.Quantity()
	case fixed.MsgNewOrder:
		md.MsgType = fixed.MsgNewOrder
		md.Instrument = SymbolToID(h.parser.Symbol())
		md.LastPrice = h.parser.Price()
		md.LastQuantity = h.parser.Quantity()
	default:
		// unknown types never reach the queue
		h.messagesDropped++
		return false
	}

	if !h.out.TryPush(md) {
		h.messagesDropped++
		return false
	}
	h.messagesProcessed++
	return true
}

func (h *Handler) MessagesProcessed() uint64 { return h.messagesProcessed }
func (h *Handler) MessagesDropped() uint64   { return h.messagesDropped }

// SymbolToID maps well-known symbols to stable ids and hashes the rest
// into the instrument range.
func SymbolToID(symbol []byte) fixed.InstrumentID {
	switch string(symbol) {
	case "AAPL":
		return 0
	case "GOOG":
		return 1
	case "MSFT":
		return 2
	case "AMZN":
		return 3
	case "TSLA":
		return 4
	}
	var hash uint32
	for _, c := range symbol {
		hash = hash*31 + uint32(c)
	}
	return fixed.InstrumentID(hash % fixed.MaxInstruments)
}
