package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tachyon/fixed"
)

func twoVenues() (*Router, *Venue, *Venue) {
	fast := New(Config{ID: 0, Name: "FAST", LatencyNs: 200, FillProbability: 1.0, Enabled: true})
	slow := New(Config{ID: 1, Name: "SLOW", LatencyNs: 900, FillProbability: 1.0, Enabled: true})
	r := NewRouter()
	r.AddVenue(fast)
	r.AddVenue(slow)
	return r, fast, slow
}

func restingReq(id fixed.OrderID) *fixed.OrderRequest {
	return &fixed.OrderRequest{
		ID: id, Side: fixed.Buy, Type: fixed.Limit,
		Price: 14000, Quantity: 10, Timestamp: fixed.Now(),
	}
}

func TestRoundRobinAlternates(t *testing.T) {
	r, fast, slow := twoVenues()
	r.SetStrategy(RouteRoundRobin)

	r.RouteOrder(restingReq(1))
	r.RouteOrder(restingReq(2))
	r.RouteOrder(restingReq(3))

	assert.Equal(t, uint64(2), fast.OrdersProcessed())
	assert.Equal(t, uint64(1), slow.OrdersProcessed())
}

func TestLowestLatencyPicksFastest(t *testing.T) {
	r, fast, slow := twoVenues()
	r.SetStrategy(RouteLowestLatency)

	for i := 1; i <= 4; i++ {
		r.RouteOrder(restingReq(fixed.OrderID(i)))
	}
	assert.Equal(t, uint64(4), fast.OrdersProcessed())
	assert.Equal(t, uint64(0), slow.OrdersProcessed())
}

func TestLowestLatencySkipsDisabled(t *testing.T) {
	fast := New(Config{ID: 0, LatencyNs: 200, FillProbability: 1.0, Enabled: false})
	slow := New(Config{ID: 1, LatencyNs: 900, FillProbability: 1.0, Enabled: true})
	r := NewRouter()
	r.AddVenue(fast)
	r.AddVenue(slow)
	r.SetStrategy(RouteLowestLatency)

	r.RouteOrder(restingReq(1))
	assert.Equal(t, uint64(1), slow.OrdersProcessed())
}

func TestBestPriceFallsBackToRoundRobin(t *testing.T) {
	r, fast, slow := twoVenues()
	r.SetStrategy(RouteBestPrice)

	r.RouteOrder(restingReq(1))
	r.RouteOrder(restingReq(2))
	assert.Equal(t, uint64(1), fast.OrdersProcessed())
	assert.Equal(t, uint64(1), slow.OrdersProcessed())
}

func TestCancelRoutesToOwningVenue(t *testing.T) {
	r, fast, slow := twoVenues()
	r.SetStrategy(RouteRoundRobin)

	r.RouteOrder(restingReq(7)) // lands on fast
	rep := r.CancelOrder(7)
	require.Equal(t, fixed.StatusCancelled, rep.Status)
	assert.Equal(t, 0, fast.Book().OrderCount())
	assert.Equal(t, 0, slow.Book().OrderCount())

	rep = r.CancelOrder(7)
	assert.Equal(t, fixed.StatusRejected, rep.Status, "mapping erased after cancel")
}

func TestCancelUnknownOrder(t *testing.T) {
	r, _, _ := twoVenues()
	rep := r.CancelOrder(404)
	assert.Equal(t, fixed.StatusRejected, rep.Status)
}

func TestRouteWithNoVenues(t *testing.T) {
	r := NewRouter()
	rep := r.RouteOrder(restingReq(1))
	assert.Equal(t, fixed.StatusRejected, rep.Status)
}
