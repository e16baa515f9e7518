package metrics

import (
	"fmt"
	"io"
)

// NumBuckets covers 0-10ns through >1ms on a log scale.
const NumBuckets = 7

var bucketLabels = [NumBuckets]string{
	"  0-10ns  ",
	" 10-100ns ",
	"100ns-1us ",
	"  1-10us  ",
	" 10-100us ",
	"100us-1ms ",
	"  >1ms    ",
}

// Histogram is a fixed log-bucket latency histogram. Record is a few
// compares and an increment; single-threaded.
type Histogram struct {
	counts [NumBuckets]uint64
	total  uint64
	min    uint64
	max    uint64
}

func NewHistogram() *Histogram {
	return &Histogram{}
}

// Record buckets one nanosecond value.
func (h *Histogram) Record(valueNs uint64) {
	var bucket int
	switch {
	case valueNs < 10:
		bucket = 0
	case valueNs < 100:
		bucket = 1
	case valueNs < 1_000:
		bucket = 2
	case valueNs < 10_000:
		bucket = 3
	case valueNs < 100_000:
		bucket = 4
	case valueNs < 1_000_000:
		bucket = 5
	default:
		bucket = 6
	}

	h.counts[bucket]++
	h.total++
	if valueNs > h.max {
		h.max = valueNs
	}
	if valueNs < h.min || h.total == 1 {
		h.min = valueNs
	}
}

func (h *Histogram) Count(bucket int) uint64 {
	if bucket < 0 || bucket >= NumBuckets {
		return 0
	}
	return h.counts[bucket]
}

func (h *Histogram) Total() uint64 { return h.total }
func (h *Histogram) Min() uint64   { return h.min }
func (h *Histogram) Max() uint64   { return h.max }

func (h *Histogram) Reset() {
	*h = Histogram{}
}

// WriteReport renders the bucket table with ASCII bars.
func (h *Histogram) WriteReport(w io.Writer, title string) {
	fmt.Fprintf(w, "\n=== %s ===\n", title)
	fmt.Fprintf(w, "Total samples: %d, Min: %dns, Max: %dns\n", h.total, h.min, h.max)

	for i := 0; i < NumBuckets; i++ {
		pct := 0.0
		if h.total > 0 {
			pct = 100.0 * float64(h.counts[i]) / float64(h.total)
		}
		fmt.Fprintf(w, "%s | %8d (%5.1f%%) ", bucketLabels[i], h.counts[i], pct)
		for j := 0; j < int(pct/2.0); j++ {
			fmt.Fprint(w, "#")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}
