// Package metrics instruments the pipeline: rolling-window latency
// trackers with percentile stats, a log-bucket histogram for
// tick-to-trade, and prometheus counters for throughput and drops. All
// percentile math happens off the hot path at report time.
package metrics
