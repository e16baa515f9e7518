package engine

import (
	"runtime"
	"sync"
	"sync/atomic"

	"tachyon/fixed"
	"tachyon/infra/cpu"
	"tachyon/infra/spsc"
	"tachyon/venue"
)

const oneSecondNs fixed.Timestamp = 1_000_000_000

// Engine consumes OrderRequest from one SPSC ring and produces
// ExecutionReport to another. Reports that do not fit the output ring
// are dropped; the simulator is at-most-once by design and the drop is
// counted.
type Engine struct {
	in  *spsc.Ring[fixed.OrderRequest]
	out *spsc.Ring[fixed.ExecutionReport]

	venues []*venue.Venue
	router *venue.Router

	running atomic.Bool
	wg      sync.WaitGroup

	maxOrdersPerSec uint32
	ordersInWindow  uint32
	rateWindowStart fixed.Timestamp

	ordersProcessed uint64
	ordersThrottled uint64
	reportsDropped  uint64

	// recordLatency, if set, receives per-order processing time. It is
	// called from the engine thread only.
	recordLatency func(ns uint64)
}

func New(in *spsc.Ring[fixed.OrderRequest], out *spsc.Ring[fixed.ExecutionReport]) *Engine {
	return &Engine{
		in:              in,
		out:             out,
		router:          venue.NewRouter(),
		maxOrdersPerSec: 10000,
	}
}

// AddVenue constructs and registers a venue simulator.
func (e *Engine) AddVenue(cfg venue.Config) {
	v := venue.New(cfg)
	e.venues = append(e.venues, v)
	e.router.AddVenue(v)
}

func (e *Engine) SetRateLimit(maxPerSec uint32)              { e.maxOrdersPerSec = maxPerSec }
func (e *Engine) SetRoutingStrategy(s venue.RoutingStrategy) { e.router.SetStrategy(s) }
func (e *Engine) SetLatencyRecorder(fn func(ns uint64))      { e.recordLatency = fn }

// SeedBooks rests symmetric liquidity on every venue.
func (e *Engine) SeedBooks(mid fixed.Price, levels int, qtyPerLevel fixed.Quantity) {
	for _, v := range e.venues {
		v.SeedBook(mid, levels, qtyPerLevel)
	}
}

// ProcessOrder applies the rate limit and routes. A throttled order
// gets a synthesized Rejected report with a zero exec id, which is how
// consumers tell it apart from a venue reject. Exported so tests and
// single-threaded callers can drive the engine without the loop.
func (e *Engine) ProcessOrder(req *fixed.OrderRequest) fixed.ExecutionReport {
	if !e.allowRate() {
		e.ordersThrottled++
		return fixed.ExecutionReport{
			OrderID:        req.ID,
			Instrument:     req.Instrument,
			Side:           req.Side,
			Status:         fixed.StatusRejected,
			Quantity:       req.Quantity,
			LeavesQuantity: req.Quantity,
			Timestamp:      fixed.Now(),
		}
	}
	e.ordersProcessed++
	return e.router.RouteOrder(req)
}

// Start launches the engine thread pinned to core. Idempotent: a
// second Start while running is a no-op.
func (e *Engine) Start(core int) {
	if e.running.Swap(true) {
		return
	}
	e.wg.Add(1)
	go e.runLoop(core)
}

// Stop flips the running flag and joins the thread. The loop drains
// its input once on the way out, so requests in flight at shutdown
// still produce reports. Safe to call on a stopped engine.
func (e *Engine) Stop() {
	if !e.running.Swap(false) {
		return
	}
	e.wg.Wait()
}

func (e *Engine) runLoop(core int) {
	defer e.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	cpu.Pin(core)

	for e.running.Load() {
		req, ok := e.in.TryPop()
		if !ok {
			continue
		}
		e.dispatch(&req)
	}

	// final drain
	for {
		req, ok := e.in.TryPop()
		if !ok {
			break
		}
		e.dispatch(&req)
	}
}

func (e *Engine) dispatch(req *fixed.OrderRequest) {
	t0 := fixed.Now()
	report := e.ProcessOrder(req)
	if !e.out.TryPush(report) {
		e.reportsDropped++
	}
	if e.recordLatency != nil {
		e.recordLatency(fixed.Now() - t0)
	}
}

// allowRate counts orders in a sliding one-second monotonic window.
func (e *Engine) allowRate() bool {
	now := fixed.Now()
	if now-e.rateWindowStart >= oneSecondNs {
		e.rateWindowStart = now
		e.ordersInWindow = 0
	}
	if e.ordersInWindow >= e.maxOrdersPerSec {
		return false
	}
	e.ordersInWindow++
	return true
}

func (e *Engine) Running() bool           { return e.running.Load() }
func (e *Engine) Router() *venue.Router   { return e.router }
func (e *Engine) Venues() []*venue.Venue  { return e.venues }
func (e *Engine) OrdersProcessed() uint64 { return e.ordersProcessed }
func (e *Engine) OrdersThrottled() uint64 { return e.ordersThrottled }
func (e *Engine) ReportsDropped() uint64  { return e.reportsDropped }
