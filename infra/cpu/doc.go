// Package cpu pins pipeline threads to cores and optionally raises them
// to SCHED_FIFO. Both calls degrade to no-ops where unsupported; a
// failed pin costs latency, not correctness.
package cpu
