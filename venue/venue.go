package venue

import (
	"math/rand"

	"tachyon/book"
	"tachyon/fixed"
	"tachyon/infra/sequence"
)

// Config describes one simulated venue. The mapstructure tags bind the
// per-venue entries of the JSON config file.
type Config struct {
	ID              fixed.ExchangeID `mapstructure:"id"`
	Name            string           `mapstructure:"name"`
	LatencyNs       uint64           `mapstructure:"latency_ns"`
	FillProbability float64          `mapstructure:"fill_probability"`
	Enabled         bool             `mapstructure:"enabled"`
}

// Venue wraps one private order book behind simulated latency and a
// probabilistic reject. A venue is owned by the execution thread; no
// method is safe for concurrent use.
type Venue struct {
	cfg  Config
	book *book.Book
	rng  *rand.Rand

	execSeq *sequence.Sequencer
	seedSeq *sequence.Sequencer

	ordersProcessed uint64
	fills           uint64
	rejects         uint64
}

// seedIDBase spaces venue-private order id ranges so ids never collide
// across venues in the router's map.
const seedIDBase = 900_000_000

// New builds a venue. The RNG seed derives from the venue id, so every
// run replays the same reject pattern.
func New(cfg Config) *Venue {
	return &Venue{
		cfg:     cfg,
		book:    book.New(0, 0),
		rng:     rand.New(rand.NewSource(int64(cfg.ID)*1000 + 42)),
		execSeq: sequence.New(0),
		seedSeq: sequence.New(seedIDBase + uint64(cfg.ID)*1_000_000),
	}
}

// SubmitOrder runs one order against the venue. The report timestamp is
// shifted by the venue's latency; the reject draw happens before the
// book is touched.
func (v *Venue) SubmitOrder(req *fixed.OrderRequest) fixed.ExecutionReport {
	v.ordersProcessed++

	report := fixed.ExecutionReport{
		OrderID:    req.ID,
		ExecID:     v.execSeq.Next(),
		Instrument: req.Instrument,
		Side:       req.Side,
		Exchange:   v.cfg.ID,
		Timestamp:  fixed.Now() + v.cfg.LatencyNs,
	}

	if v.rng.Float64() > v.cfg.FillProbability {
		report.Status = fixed.StatusRejected
		report.Price = req.Price
		report.Quantity = req.Quantity
		report.LeavesQuantity = req.Quantity
		v.rejects++
		return report
	}

	trades := v.book.AddOrder(req.ID, req.Side, req.Type, req.Price, req.Quantity, report.Timestamp)

	if len(trades) > 0 {
		var filled fixed.Quantity
		var lastPrice fixed.Price
		for i := range trades {
			filled += trades[i].Quantity
			lastPrice = trades[i].Price
		}
		report.Quantity = req.Quantity
		report.FilledQuantity = filled
		report.LeavesQuantity = req.Quantity - filled
		report.Price = lastPrice
		if report.LeavesQuantity == 0 {
			report.Status = fixed.StatusFilled
		} else {
			report.Status = fixed.StatusPartiallyFilled
		}
		v.fills++
		return report
	}

	// no trades: resting limit, an exhausted IOC/Market residual, or a
	// FOK the book killed without touching resting orders
	if req.Type == fixed.IOC || req.Type == fixed.Market || req.Type == fixed.FOK {
		report.Status = fixed.StatusCancelled
		report.LeavesQuantity = req.Quantity
	} else {
		report.Status = fixed.StatusNew
		report.Price = req.Price
		report.Quantity = req.Quantity
		report.LeavesQuantity = req.Quantity
	}
	return report
}

// CancelOrder removes a resting order from the venue's book.
func (v *Venue) CancelOrder(id fixed.OrderID) fixed.ExecutionReport {
	report := fixed.ExecutionReport{
		OrderID:   id,
		ExecID:    v.execSeq.Next(),
		Exchange:  v.cfg.ID,
		Timestamp: fixed.Now() + v.cfg.LatencyNs,
	}
	if v.book.CancelOrder(id) {
		report.Status = fixed.StatusCancelled
	} else {
		report.Status = fixed.StatusRejected
	}
	return report
}

// SeedBook rests symmetric liquidity around mid: levels bids below,
// levels asks above, one tick apart, qtyPerLevel each.
func (v *Venue) SeedBook(mid fixed.Price, levels int, qtyPerLevel fixed.Quantity) {
	for i := 1; i <= levels; i++ {
		v.book.AddOrder(v.seedSeq.Next(), fixed.Buy, fixed.Limit,
			mid-fixed.Price(i), qtyPerLevel, fixed.Now())
		v.book.AddOrder(v.seedSeq.Next(), fixed.Sell, fixed.Limit,
			mid+fixed.Price(i), qtyPerLevel, fixed.Now())
	}
}

func (v *Venue) ID() fixed.ExchangeID    { return v.cfg.ID }
func (v *Venue) Name() string            { return v.cfg.Name }
func (v *Venue) Config() Config          { return v.cfg }
func (v *Venue) Book() *book.Book        { return v.book }
func (v *Venue) OrdersProcessed() uint64 { return v.ordersProcessed }
func (v *Venue) Fills() uint64           { return v.fills }
func (v *Venue) Rejects() uint64         { return v.rejects }
