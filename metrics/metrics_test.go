package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerPercentiles(t *testing.T) {
	tr := NewLatencyTracker(2048)
	for i := uint64(1); i <= 1000; i++ {
		tr.Record(i)
	}

	s := tr.ComputeStats()
	require.Equal(t, 1000, s.Count)
	assert.Equal(t, uint64(1), s.Min)
	assert.Equal(t, uint64(1000), s.Max)
	assert.InDelta(t, 500, float64(s.P50), 2)
	assert.InDelta(t, 900, float64(s.P90), 2)
	assert.InDelta(t, 990, float64(s.P99), 2)
	assert.InDelta(t, 500.5, s.Mean, 0.5)
}

func TestTrackerEmpty(t *testing.T) {
	tr := NewLatencyTracker(16)
	assert.Equal(t, Stats{}, tr.ComputeStats())
}

func TestTrackerRollsOver(t *testing.T) {
	tr := NewLatencyTracker(100)
	for i := uint64(0); i < 250; i++ {
		tr.Record(i)
	}
	s := tr.ComputeStats()
	assert.Equal(t, 100, s.Count)
	assert.Equal(t, uint64(150), s.Min, "old samples rolled out")
	assert.Equal(t, uint64(249), s.Max)
}

func TestHistogramBuckets(t *testing.T) {
	h := NewHistogram()
	h.Record(5)         // bucket 0
	h.Record(50)        // bucket 1
	h.Record(500)       // bucket 2
	h.Record(5_000)     // bucket 3
	h.Record(50_000)    // bucket 4
	h.Record(500_000)   // bucket 5
	h.Record(5_000_000) // bucket 6

	for i := 0; i < NumBuckets; i++ {
		assert.Equal(t, uint64(1), h.Count(i), "bucket %d", i)
	}
	assert.Equal(t, uint64(7), h.Total())
	assert.Equal(t, uint64(5), h.Min())
	assert.Equal(t, uint64(5_000_000), h.Max())
}

func TestHistogramReport(t *testing.T) {
	h := NewHistogram()
	for i := 0; i < 100; i++ {
		h.Record(500)
	}
	var sb strings.Builder
	h.WriteReport(&sb, "Tick-to-Trade Latency")
	out := sb.String()
	assert.Contains(t, out, "Tick-to-Trade Latency")
	assert.Contains(t, out, "100ns-1us")
	assert.Contains(t, out, "(100.0%)")
}

func TestCollectorCountersRoundTrip(t *testing.T) {
	c := NewCollector(1024)
	for i := 0; i < 5; i++ {
		c.RecordMarketDataMsg()
	}
	c.RecordOrderSent()
	c.RecordFill()
	c.RecordMessageDropped()

	assert.Equal(t, uint64(5), c.MarketDataMessages())
	assert.Equal(t, uint64(1), c.OrdersSent())
	assert.Equal(t, uint64(1), c.Fills())
	assert.Equal(t, uint64(1), c.MessagesDropped())
}

func TestCollectorSummaryPrints(t *testing.T) {
	c := NewCollector(1024)
	c.RecordMarketDataMsg()
	c.TickToTrade.Record(800)

	var sb strings.Builder
	c.PrintSummary(&sb, 2.0)
	out := sb.String()
	assert.Contains(t, out, "Throughput Summary")
	assert.Contains(t, out, "tick_to_trade")
	assert.Contains(t, out, "Market data messages: 1")
}

func TestDumpCSV(t *testing.T) {
	c := NewCollector(1024)
	c.RiskCheck.Record(90)

	path := filepath.Join(t.TempDir(), "latency.csv")
	require.NoError(t, c.DumpCSV(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "stage,count,mean_ns")
	assert.Contains(t, out, "risk_check,1")
}
