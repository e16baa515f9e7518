// Package spsc implements a lock-free single-producer single-consumer
// ring buffer. One goroutine may push and one may pop; the pair is the
// only synchronization the pipeline stages use to hand records to each
// other.
package spsc
