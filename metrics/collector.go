package metrics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector aggregates the per-stage latency trackers, the
// tick-to-trade histogram, and the throughput counters. Counters are
// prometheus counters on a private registry; the registry is gathered
// for the final report instead of being served (the simulator has no
// network surface).
//
// Thread ownership: the market-data tracker belongs to the feed
// thread, the execution tracker to the engine thread, every other
// tracker to the strategy thread. Prometheus counters are safe from
// any thread.
type Collector struct {
	registry *prometheus.Registry

	MarketData  *LatencyTracker
	OrderBook   *LatencyTracker
	Strategy    *LatencyTracker
	RiskCheck   *LatencyTracker
	Execution   *LatencyTracker
	TickToTrade *LatencyTracker

	TickToTradeHist *Histogram

	mdMessages      prometheus.Counter
	bookUpdates     prometheus.Counter
	ordersSent      prometheus.Counter
	fills           prometheus.Counter
	messagesDropped prometheus.Counter
	ordersThrottled prometheus.Counter
	venueRejects    prometheus.Counter
	risksRejected   prometheus.Counter
}

func NewCollector(maxSamples int) *Collector {
	c := &Collector{
		registry:        prometheus.NewRegistry(),
		MarketData:      NewLatencyTracker(maxSamples),
		OrderBook:       NewLatencyTracker(maxSamples),
		Strategy:        NewLatencyTracker(maxSamples),
		RiskCheck:       NewLatencyTracker(maxSamples),
		Execution:       NewLatencyTracker(maxSamples),
		TickToTrade:     NewLatencyTracker(maxSamples),
		TickToTradeHist: NewHistogram(),
	}

	counter := func(name, help string) prometheus.Counter {
		ctr := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tachyon",
			Name:      name,
			Help:      help,
		})
		c.registry.MustRegister(ctr)
		return ctr
	}

	c.mdMessages = counter("market_data_messages_total", "Market data messages generated")
	c.bookUpdates = counter("order_book_updates_total", "Order book updates applied")
	c.ordersSent = counter("orders_sent_total", "Orders passed to the execution queue")
	c.fills = counter("fills_total", "Fills observed in execution reports")
	c.messagesDropped = counter("messages_dropped_total", "Feed messages dropped before the queue")
	c.ordersThrottled = counter("orders_throttled_total", "Orders rejected by the engine rate limit")
	c.venueRejects = counter("venue_rejects_total", "Orders rejected by venue simulation")
	c.risksRejected = counter("risk_rejections_total", "Orders rejected by the pre-trade gate")

	return c
}

func (c *Collector) RecordMarketDataMsg()  { c.mdMessages.Inc() }
func (c *Collector) RecordBookUpdate()     { c.bookUpdates.Inc() }
func (c *Collector) RecordOrderSent()      { c.ordersSent.Inc() }
func (c *Collector) RecordFill()           { c.fills.Inc() }
func (c *Collector) RecordMessageDropped() { c.messagesDropped.Inc() }
func (c *Collector) RecordThrottle()       { c.ordersThrottled.Inc() }
func (c *Collector) RecordVenueReject()    { c.venueRejects.Inc() }
func (c *Collector) RecordRiskRejection()  { c.risksRejected.Inc() }

// counterValue gathers one counter back out of the registry.
func (c *Collector) counterValue(name string) float64 {
	families, err := c.registry.Gather()
	if err != nil {
		return 0
	}
	full := "tachyon_" + name
	for _, mf := range families {
		if mf.GetName() == full {
			for _, m := range mf.GetMetric() {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func (c *Collector) MarketDataMessages() uint64 {
	return uint64(c.counterValue("market_data_messages_total"))
}
func (c *Collector) OrdersSent() uint64      { return uint64(c.counterValue("orders_sent_total")) }
func (c *Collector) Fills() uint64           { return uint64(c.counterValue("fills_total")) }
func (c *Collector) MessagesDropped() uint64 { return uint64(c.counterValue("messages_dropped_total")) }

// PrintSummary writes the throughput and per-stage latency report.
func (c *Collector) PrintSummary(w io.Writer, elapsedSeconds float64) {
	fmt.Fprintln(w, "\n=== Throughput Summary ===")
	md := c.counterValue("market_data_messages_total")
	fmt.Fprintf(w, "  Elapsed:              %.2fs\n", elapsedSeconds)
	fmt.Fprintf(w, "  Market data messages: %.0f (%.0f/s)\n", md, rate(md, elapsedSeconds))
	fmt.Fprintf(w, "  Book updates:         %.0f\n", c.counterValue("order_book_updates_total"))
	fmt.Fprintf(w, "  Orders sent:          %.0f\n", c.counterValue("orders_sent_total"))
	fmt.Fprintf(w, "  Fills:                %.0f\n", c.counterValue("fills_total"))
	fmt.Fprintf(w, "  Messages dropped:     %.0f\n", c.counterValue("messages_dropped_total"))
	fmt.Fprintf(w, "  Orders throttled:     %.0f\n", c.counterValue("orders_throttled_total"))
	fmt.Fprintf(w, "  Venue rejects:        %.0f\n", c.counterValue("venue_rejects_total"))
	fmt.Fprintf(w, "  Risk rejections:      %.0f\n", c.counterValue("risk_rejections_total"))

	fmt.Fprintln(w, "\n=== Stage Latencies ===")
	c.printStage(w, "market_data", c.MarketData)
	c.printStage(w, "order_book", c.OrderBook)
	c.printStage(w, "strategy", c.Strategy)
	c.printStage(w, "risk_check", c.RiskCheck)
	c.printStage(w, "execution", c.Execution)
	c.printStage(w, "tick_to_trade", c.TickToTrade)
}

func (c *Collector) printStage(w io.Writer, name string, t *LatencyTracker) {
	s := t.ComputeStats()
	if s.Count == 0 {
		fmt.Fprintf(w, "  %-14s (no samples)\n", name)
		return
	}
	fmt.Fprintf(w, "  %-14s p50=%dns p90=%dns p99=%dns p99.9=%dns max=%dns mean=%.0fns n=%d\n",
		name, s.P50, s.P90, s.P99, s.P999, s.Max, s.Mean, s.Count)
}

// DumpCSV writes per-stage percentiles for offline analysis.
func (c *Collector) DumpCSV(path string) error {
	var b strings.Builder
	b.WriteString("stage,count,mean_ns,p50_ns,p90_ns,p95_ns,p99_ns,p999_ns,min_ns,max_ns\n")
	stages := []struct {
		name    string
		tracker *LatencyTracker
	}{
		{"market_data", c.MarketData},
		{"order_book", c.OrderBook},
		{"strategy", c.Strategy},
		{"risk_check", c.RiskCheck},
		{"execution", c.Execution},
		{"tick_to_trade", c.TickToTrade},
	}
	for _, st := range stages {
		s := st.tracker.ComputeStats()
		fmt.Fprintf(&b, "%s,%d,%.0f,%d,%d,%d,%d,%d,%d,%d\n",
			st.name, s.Count, s.Mean, s.P50, s.P90, s.P95, s.P99, s.P999, s.Min, s.Max)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func rate(count, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return count / seconds
}
