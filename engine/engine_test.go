package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tachyon/fixed"
	"tachyon/infra/spsc"
	"tachyon/venue"
)

func newEngine(t *testing.T) (*Engine, *spsc.Ring[fixed.OrderRequest], *spsc.Ring[fixed.ExecutionReport]) {
	t.Helper()
	in := spsc.New[fixed.OrderRequest](1024)
	out := spsc.New[fixed.ExecutionReport](1024)
	e := New(in, out)
	e.AddVenue(venue.Config{ID: 0, Name: "SIM", LatencyNs: 100, FillProbability: 1.0, Enabled: true})
	return e, in, out
}

func request(id fixed.OrderID) fixed.OrderRequest {
	return fixed.OrderRequest{
		ID: id, Side: fixed.Buy, Type: fixed.Limit,
		Price: 14999, Quantity: 10, Timestamp: fixed.Now(),
	}
}

func TestProcessOrderRoutes(t *testing.T) {
	e, _, _ := newEngine(t)
	e.SeedBooks(15000, 5, 100)

	req := request(1)
	req.Price = 15001
	rep := e.ProcessOrder(&req)
	assert.Equal(t, fixed.StatusFilled, rep.Status)
	assert.Equal(t, uint64(1), e.OrdersProcessed())
}

func TestRateLimitSynthesizesReject(t *testing.T) {
	e, _, _ := newEngine(t)
	e.SetRateLimit(2)

	for i := 1; i <= 2; i++ {
		rep := e.ProcessOrder(&fixed.OrderRequest{ID: fixed.OrderID(i), Quantity: 5})
		require.NotEqual(t, fixed.StatusRejected, rep.Status)
	}
	rep := e.ProcessOrder(&fixed.OrderRequest{ID: 3, Quantity: 5})
	assert.Equal(t, fixed.StatusRejected, rep.Status)
	assert.Equal(t, fixed.Quantity(5), rep.LeavesQuantity)
	assert.Zero(t, rep.ExecID, "synthesized throttle report carries no exec id")
	assert.Equal(t, uint64(1), e.OrdersThrottled())
	assert.Equal(t, uint64(2), e.OrdersProcessed(), "throttled orders are not processed")
}

func TestStartStopIdempotent(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Start(-1)
	e.Start(-1) // second start is a no-op
	require.True(t, e.Running())
	e.Stop()
	require.False(t, e.Running())
	e.Stop() // stop on stopped engine is a no-op
}

func TestStopOnUnstartedEngine(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Stop()
	assert.False(t, e.Running())
}

func TestLoopProcessesAndReports(t *testing.T) {
	e, in, out := newEngine(t)
	e.SeedBooks(15000, 5, 100)
	e.Start(-1)
	defer e.Stop()

	const n = 100
	for i := 1; i <= n; i++ {
		req := request(fixed.OrderID(i))
		req.Price = 15001
		req.Quantity = 1
		for !in.TryPush(req) {
		}
	}

	got := 0
	deadline := time.Now().Add(5 * time.Second)
	for got < n && time.Now().Before(deadline) {
		if rep, ok := out.TryPop(); ok {
			assert.Equal(t, fixed.StatusFilled, rep.Status)
			got++
		}
	}
	assert.Equal(t, n, got)
}

func TestDrainOnStop(t *testing.T) {
	e, in, out := newEngine(t)

	// enqueue before the loop ever runs, then start and stop straight
	// away: the drain pass must still produce the reports
	for i := 1; i <= 10; i++ {
		require.True(t, in.TryPush(request(fixed.OrderID(i))))
	}
	e.Start(-1)
	e.Stop()

	count := 0
	for {
		if _, ok := out.TryPop(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, 10, count)
}
