package venue

import "tachyon/fixed"

// RoutingStrategy selects which venue receives the next order.
type RoutingStrategy uint8

const (
	RouteRoundRobin RoutingStrategy = iota
	RouteLowestLatency
	// RouteBestPrice is declared but routes round-robin today; a true
	// implementation would query every venue's book for the touch.
	RouteBestPrice
)

// Router fans orders out to venues and tracks the order-to-venue
// mapping so cancels reach the right book. Owned by the execution
// thread.
type Router struct {
	venues   []*Venue
	strategy RoutingStrategy
	rrCursor int
	orderMap map[fixed.OrderID]fixed.ExchangeID
}

func NewRouter() *Router {
	return &Router{orderMap: make(map[fixed.OrderID]fixed.ExchangeID, 1024)}
}

func (r *Router) AddVenue(v *Venue) {
	r.venues = append(r.venues, v)
}

func (r *Router) SetStrategy(s RoutingStrategy) { r.strategy = s }
func (r *Router) VenueCount() int               { return len(r.venues) }

// RouteOrder selects a venue, records the mapping, and submits.
func (r *Router) RouteOrder(req *fixed.OrderRequest) fixed.ExecutionReport {
	v := r.selectVenue()
	if v == nil {
		return fixed.ExecutionReport{
			OrderID:   req.ID,
			Status:    fixed.StatusRejected,
			Timestamp: fixed.Now(),
		}
	}
	r.orderMap[req.ID] = v.ID()
	return v.SubmitOrder(req)
}

// CancelOrder routes the cancel to whichever venue holds the order and
// forgets the mapping once the venue confirms.
func (r *Router) CancelOrder(id fixed.OrderID) fixed.ExecutionReport {
	eid, ok := r.orderMap[id]
	if !ok {
		return fixed.ExecutionReport{
			OrderID:   id,
			Status:    fixed.StatusRejected,
			Timestamp: fixed.Now(),
		}
	}
	for _, v := range r.venues {
		if v.ID() == eid {
			report := v.CancelOrder(id)
			if report.Status == fixed.StatusCancelled {
				delete(r.orderMap, id)
			}
			return report
		}
	}
	return fixed.ExecutionReport{
		OrderID:   id,
		Status:    fixed.StatusRejected,
		Timestamp: fixed.Now(),
	}
}

func (r *Router) selectVenue() *Venue {
	if len(r.venues) == 0 {
		return nil
	}

	switch r.strategy {
	case RouteLowestLatency:
		var best *Venue
		minLatency := ^uint64(0)
		for _, v := range r.venues {
			if v.Config().Enabled && v.Config().LatencyNs < minLatency {
				minLatency = v.Config().LatencyNs
				best = v
			}
		}
		if best != nil {
			return best
		}
		return r.venues[0]
	default: // RouteRoundRobin and the RouteBestPrice fallback
		v := r.venues[r.rrCursor%len(r.venues)]
		r.rrCursor = (r.rrCursor + 1) % len(r.venues)
		return v
	}
}
