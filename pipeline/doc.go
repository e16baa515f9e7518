// Package pipeline wires the stages together: the feed thread that
// generates and parses market data, the strategy thread that runs the
// instrument books, strategies, and the risk gate, and the execution
// engine. It owns the SPSC rings between them, the stage state
// machines, and the cooperative shutdown path.
package pipeline
