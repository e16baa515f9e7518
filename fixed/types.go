package fixed

// Core type aliases. Prices are fixed-point with two decimal places:
// 150.50 is stored as 15050.
type (
	Price        = int64
	Quantity     = uint64
	OrderID      = uint64
	InstrumentID = uint32
	ExchangeID   = uint8
	Timestamp    = uint64
)

const (
	// PriceScale converts between fixed-point prices and currency units.
	PriceScale = 100

	// MaxInstruments bounds the flat arrays in the position tracker.
	MaxInstruments = 256

	// MaxExchanges is the nominal venue-table size. Nothing enforces it:
	// Router.AddVenue accepts any number of venues.
	MaxExchanges = 16

	// CacheLine is the assumed cache line size in bytes. Transport
	// records and queue indices are laid out against it.
	CacheLine = 64
)

type Side uint8

const (
	Buy  Side = 0
	Sell Side = 1
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

type OrderType uint8

const (
	Limit  OrderType = 0
	Market OrderType = 1
	IOC    OrderType = 2
	FOK    OrderType = 3
)

type OrderStatus uint8

const (
	StatusNew             OrderStatus = 0
	StatusPartiallyFilled OrderStatus = 1
	StatusFilled          OrderStatus = 2
	StatusCancelled       OrderStatus = 3
	StatusRejected        OrderStatus = 4
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "rejected"
	}
}

// Order is the wire/transport form of an order. It is exactly one cache
// line so a queue slot copy never straddles two lines, and it carries no
// pointers so it can cross an SPSC ring by value.
type Order struct {
	ID             OrderID      // 8
	Instrument     InstrumentID // 4
	Side           Side         // 1
	Type           OrderType    // 1
	Status         OrderStatus  // 1
	_              uint8        // 1
	Price          Price        // 8
	Quantity       Quantity     // 8
	FilledQuantity Quantity     // 8
	Timestamp      Timestamp    // 8
	_              [16]byte     // pad to CacheLine
}

// Trade is one fill produced by a matching walk. Trades are written into
// a scratch buffer owned by the book; consumers copy before the next
// matching call.
type Trade struct {
	BuyerOrderID  OrderID
	SellerOrderID OrderID
	Instrument    InstrumentID
	Price         Price
	Quantity      Quantity
	Timestamp     Timestamp
}

// Market data message types observed by the core.
const (
	MsgSnapshot  = 'W'
	MsgExecution = '8'
	MsgNewOrder  = 'D'
)

// MarketDataMessage is the normalized form of one feed message.
type MarketDataMessage struct {
	Instrument   InstrumentID
	BidPrice     Price
	AskPrice     Price
	BidQuantity  Quantity
	AskQuantity  Quantity
	LastPrice    Price
	LastQuantity Quantity
	Timestamp    Timestamp
	MsgType      uint8
}

// OrderRequest is the intent to route an order, produced by strategies
// and consumed by the execution engine.
type OrderRequest struct {
	ID         OrderID
	Instrument InstrumentID
	Side       Side
	Type       OrderType
	Price      Price
	Quantity   Quantity
	Exchange   ExchangeID
	Timestamp  Timestamp
}

// ExecutionReport is the result of one venue interaction.
type ExecutionReport struct {
	OrderID        OrderID
	ExecID         OrderID
	Instrument     InstrumentID
	Side           Side
	Status         OrderStatus
	Price          Price
	Quantity       Quantity
	FilledQuantity Quantity
	LeavesQuantity Quantity
	Timestamp      Timestamp
	Exchange       ExchangeID
}

// ToPrice converts a currency amount to fixed-point, rounding half away
// from zero.
func ToPrice(v float64) Price {
	if v >= 0 {
		return Price(v*PriceScale + 0.5)
	}
	return Price(v*PriceScale - 0.5)
}

// ToFloat converts a fixed-point price back to currency units. Reporting
// and P&L only; never on the matching path.
func ToFloat(p Price) float64 {
	return float64(p) / PriceScale
}
