// Package venue simulates execution venues and routes orders between
// them. Each venue wraps a private order book, a deterministic RNG, a
// fixed latency, and a fill probability; the router picks a venue per
// strategy and remembers where every order went so cancels find it.
package venue
