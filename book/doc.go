// Package book implements the price-time-priority matching engine. It
// maintains two btree-ordered sides of intrusive FIFO price levels over
// a slab pool, a hash map for O(1) cancel, and a cached best bid and
// offer. Each book is a single-writer structure owned by exactly one
// thread; matching never allocates and reports trades through a scratch
// buffer reused across calls.
package book
