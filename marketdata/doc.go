// Package marketdata produces and normalizes the inbound feed: a
// synthetic random-walk FIX generator, a zero-copy parser for the FIX
// subset it emits, and the handler that turns parsed messages into
// MarketDataMessage records on the market-data ring.
package marketdata
