// Package strategy defines the callback contract between the pipeline
// and its trading policies, plus the three stock policies: a volatility
// aware market maker, a z-score pairs trade, and an EMA momentum
// follower. Strategies run on the strategy thread only and write order
// intents into preallocated scratch, never the heap.
package strategy
