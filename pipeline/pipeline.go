package pipeline

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tachyon/book"
	"tachyon/config"
	"tachyon/engine"
	"tachyon/fixed"
	"tachyon/infra/sequence"
	"tachyon/infra/spsc"
	"tachyon/marketdata"
	"tachyon/metrics"
	"tachyon/risk"
	"tachyon/strategy"
)

var symbols = []struct {
	name       string
	priceScale float64 // multiplier on the configured initial price
	volScale   float64
}{
	{"AAPL", 1.0, 1.0},
	{"GOOG", 1.87, 1.2},
	{"MSFT", 2.2, 0.9},
	{"AMZN", 1.2, 1.1},
	{"TSLA", 1.6, 1.8},
}

// feedOrderIDBase starts the id range for book orders synthesized from
// 'D' feed messages, away from every strategy's range.
const feedOrderIDBase = 500_000_000

// Pipeline owns every component and the rings between them.
//
// Threading: the feed stage produces the market-data ring; the strategy
// stage consumes it, runs books, strategies, and the risk gate, and
// produces the order ring; the engine consumes orders and produces the
// report ring, which the strategy stage consumes. Every ring keeps the
// one-producer one-consumer discipline.
type Pipeline struct {
	cfg config.Config
	log *zap.Logger

	mdRing     *spsc.Ring[fixed.MarketDataMessage]
	orderRing  *spsc.Ring[fixed.OrderRequest]
	reportRing *spsc.Ring[fixed.ExecutionReport]

	feed    *marketdata.Feed
	handler *marketdata.Handler

	books      []*book.Book
	strategies []strategy.Strategy
	gate       *risk.Gate
	exec       *engine.Engine
	collector  *metrics.Collector

	feedStage     *Stage
	strategyStage *Stage

	stop atomic.Bool

	lastMid     []fixed.Price
	feedOrders  *sequence.Sequencer
	feedNextAt  fixed.Timestamp
	feedEveryNs fixed.Timestamp
}

// New constructs and wires everything from config. Queues are
// heap-allocated here, once; during Run the instrument and venue books
// still allocate a price level the first time an order rests at a new
// price.
func New(cfg config.Config, log *zap.Logger) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		log:        log,
		mdRing:     spsc.New[fixed.MarketDataMessage](cfg.MarketDataQueueSize),
		orderRing:  spsc.New[fixed.OrderRequest](cfg.OrderQueueSize),
		reportRing: spsc.New[fixed.ExecutionReport](cfg.ExecutionReportQueueSize),
		feed:       marketdata.NewFeed(),
		collector:  metrics.NewCollector(0),
		gate:       risk.NewGate(cfg.RiskLimits),
		lastMid:    make([]fixed.Price, fixed.MaxInstruments),
		feedOrders: sequence.New(feedOrderIDBase),
	}
	p.handler = marketdata.NewHandler(p.mdRing)

	n := int(cfg.NumInstruments)
	if n < 1 {
		n = 1
	}
	if n > len(symbols) {
		n = len(symbols)
	}
	initial := cfg.InitialPrice / fixed.PriceScale // config holds fixed-point
	for i := 0; i < n; i++ {
		sym := symbols[i]
		p.feed.AddInstrument(fixed.InstrumentID(i), sym.name,
			initial*sym.priceScale, cfg.Volatility*sym.volScale, 0.02*initial*sym.priceScale/150, 100)
		p.books = append(p.books, book.New(fixed.InstrumentID(i), 0))
	}

	// strategies: one market maker on instrument 0, one pairs trade
	// across 0/1 when there are two instruments, one momentum on 0
	mmParams := strategy.DefaultMarketMakerParams()
	mmParams.BaseSpreadBps = cfg.MarketMakerSpreadBps
	mmParams.MaxInventory = cfg.MarketMakerMaxInventory
	p.strategies = append(p.strategies, strategy.NewMarketMaker(mmParams))

	if n > 1 {
		pairsParams := strategy.DefaultPairsParams()
		pairsParams.LookbackWindow = cfg.PairsLookbackWindow
		pairsParams.EntryZ = cfg.PairsEntryZ
		pairsParams.ExitZ = cfg.PairsExitZ
		p.strategies = append(p.strategies, strategy.NewPairs(pairsParams))
	}

	momParams := strategy.DefaultMomentumParams()
	momParams.FastWindow = cfg.MomentumFastWindow
	momParams.SlowWindow = cfg.MomentumSlowWindow
	momParams.BreakoutBps = cfg.MomentumBreakoutBps
	p.strategies = append(p.strategies, strategy.NewMomentum(momParams))

	p.exec = engine.New(p.orderRing, p.reportRing)
	for _, vc := range cfg.ActiveExchanges() {
		p.exec.AddVenue(vc)
	}
	p.exec.SetRateLimit(cfg.RiskLimits.MaxOrdersPerSecond)
	p.exec.SetLatencyRecorder(p.collector.Execution.Record)
	p.exec.SeedBooks(fixed.Price(cfg.InitialPrice), 10, 1000)

	if cfg.FeedRateMsgsPerSec > 0 {
		p.feedEveryNs = fixed.Timestamp(1e9 / cfg.FeedRateMsgsPerSec)
	}

	p.feedStage = NewStage("market_data", cfg.MarketDataCore, p.feedTick, nil)
	p.strategyStage = NewStage("strategy", cfg.StrategyCore, p.strategyTick, p.strategyDrain)

	return p
}

// RequestStop asks the orchestrator to wind down; signal handlers call
// this from their goroutine.
func (p *Pipeline) RequestStop() { p.stop.Store(true) }

// Run drives the simulation for the configured duration or until a
// stop request, then shuts the stages down in flow order and drains
// what is left in the rings.
func (p *Pipeline) Run() {
	duration := time.Duration(p.cfg.SimulationDurationMs) * time.Millisecond
	p.log.Info("pipeline starting",
		zap.Int("instruments", len(p.books)),
		zap.Int("strategies", len(p.strategies)),
		zap.Int("venues", len(p.cfg.ActiveExchanges())),
		zap.Duration("duration", duration),
	)

	p.feedNextAt = fixed.Now()
	p.exec.Start(p.cfg.ExecutionCore)
	p.strategyStage.Start()
	p.feedStage.Start()

	deadline := time.Now().Add(duration)
	for !p.stop.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	// upstream first so downstream drains see everything
	p.feedStage.Stop()
	p.strategyStage.Stop()
	p.exec.Stop()
	p.drainReports()

	p.log.Info("pipeline stopped",
		zap.Uint64("feed_messages", p.feed.MessagesGenerated()),
		zap.Uint64("handler_drops", p.handler.MessagesDropped()),
		zap.Uint64("risk_rejections", p.gate.ChecksRejected()),
		zap.Bool("kill_switch", p.gate.KillSwitchOn()),
	)
}

// feedTick paces the generator to the configured rate and feeds the
// parser. Runs on the feed thread.
func (p *Pipeline) feedTick() bool {
	now := fixed.Now()
	if now < p.feedNextAt {
		return false
	}
	p.feedNextAt = now + p.feedEveryNs

	t0 := fixed.Now()
	msg := p.feed.NextMessage()
	if len(msg) == 0 {
		return false
	}
	ok := p.handler.ProcessMessage(msg)
	p.collector.MarketData.Record(fixed.Now() - t0)
	p.collector.RecordMarketDataMsg()
	if !ok {
		p.collector.RecordMessageDropped()
	}
	return true
}

// strategyTick consumes one market-data message and every pending
// execution report. Runs on the strategy thread.
func (p *Pipeline) strategyTick() bool {
	worked := false

	if md, ok := p.mdRing.TryPop(); ok {
		p.onMarketData(&md)
		worked = true
	}

	for {
		report, ok := p.reportRing.TryPop()
		if !ok {
			break
		}
		p.onExecutionReport(&report)
		worked = true
	}

	return worked
}

// strategyDrain empties the market-data ring once after stop.
func (p *Pipeline) strategyDrain() {
	for {
		md, ok := p.mdRing.TryPop()
		if !ok {
			return
		}
		p.onMarketData(&md)
	}
}

func (p *Pipeline) onMarketData(md *fixed.MarketDataMessage) {
	if md.BidPrice > 0 && md.AskPrice > 0 {
		p.lastMid[md.Instrument] = (md.BidPrice + md.AskPrice) / 2
	} else if md.LastPrice > 0 && p.lastMid[md.Instrument] == 0 {
		p.lastMid[md.Instrument] = md.LastPrice
	}

	if md.MsgType == fixed.MsgNewOrder {
		p.onBookOrder(md)
	}

	tStrat := fixed.Now()
	for _, s := range p.strategies {
		s.OnMarketData(md)
	}
	for _, s := range p.strategies {
		for _, req := range s.GenerateOrders() {
			p.submit(&req)
		}
	}
	now := fixed.Now()
	p.collector.Strategy.Record(now - tStrat)
	p.collector.TickToTrade.Record(now - md.Timestamp)
	p.collector.TickToTradeHist.Record(now - md.Timestamp)
}

// onBookOrder applies a synthetic 'D' message to the instrument book.
// The message carries no side, so price relative to the last mid
// decides it: under the mid bids, over the mid offers.
func (p *Pipeline) onBookOrder(md *fixed.MarketDataMessage) {
	if int(md.Instrument) >= len(p.books) || md.LastPrice <= 0 || md.LastQuantity == 0 {
		return
	}
	b := p.books[md.Instrument]

	side := fixed.Buy
	if mid := p.lastMid[md.Instrument]; mid > 0 && md.LastPrice > mid {
		side = fixed.Sell
	}

	t0 := fixed.Now()
	trades := b.AddOrder(p.feedOrders.Next(), side, fixed.Limit, md.LastPrice, md.LastQuantity, md.Timestamp)
	p.collector.OrderBook.Record(fixed.Now() - t0)
	p.collector.RecordBookUpdate()

	for i := range trades {
		for _, s := range p.strategies {
			s.OnTrade(&trades[i])
		}
	}
	if b.BestBidQuantity() > 0 || b.BestAskQuantity() > 0 {
		for _, s := range p.strategies {
			s.OnOrderBookUpdate(md.Instrument, b.BestBid(), b.BestBidQuantity(), b.BestAsk(), b.BestAskQuantity())
		}
	}
}

// submit gates one order request and hands it to the execution queue.
func (p *Pipeline) submit(req *fixed.OrderRequest) {
	t0 := fixed.Now()
	result := p.gate.CheckOrder(req, p.lastMid[req.Instrument])
	p.collector.RiskCheck.Record(fixed.Now() - t0)

	if result != risk.Approved {
		p.collector.RecordRiskRejection()
		return
	}
	if p.orderRing.TryPush(*req) {
		p.collector.RecordOrderSent()
	}
}

func (p *Pipeline) onExecutionReport(report *fixed.ExecutionReport) {
	for _, s := range p.strategies {
		s.OnExecutionReport(report)
	}

	if report.Status == fixed.StatusFilled || report.Status == fixed.StatusPartiallyFilled {
		p.gate.Positions().OnFill(report.Instrument, report.Side, report.FilledQuantity, report.Price)
		p.collector.RecordFill()
	}
	if report.Status == fixed.StatusRejected {
		// venue rejects carry an exec id from the venue's sequencer;
		// rate-limit rejections are synthesized upstream without one
		if report.ExecID != 0 {
			p.collector.RecordVenueReject()
		} else {
			p.collector.RecordThrottle()
		}
	}
	if report.Price > 0 {
		p.gate.Positions().UpdateMarkPrice(report.Instrument, report.Price)
	}
	p.gate.OnPnLUpdate(p.gate.Positions().TotalPnL())
}

// drainReports handles reports still queued after every stage joined.
// The strategy thread is gone by now, so single-consumer discipline
// holds.
func (p *Pipeline) drainReports() {
	for {
		report, ok := p.reportRing.TryPop()
		if !ok {
			return
		}
		p.onExecutionReport(&report)
	}
}

func (p *Pipeline) Collector() *metrics.Collector { return p.collector }
func (p *Pipeline) Gate() *risk.Gate              { return p.gate }
func (p *Pipeline) Engine() *engine.Engine        { return p.exec }
func (p *Pipeline) Feed() *marketdata.Feed        { return p.feed }
func (p *Pipeline) Books() []*book.Book           { return p.books }
