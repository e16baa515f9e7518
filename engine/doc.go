// Package engine runs the execution stage: a single pinned thread that
// drains order requests from its input ring, applies the order rate
// limit, dispatches through the router, and publishes execution
// reports. The engine owns its venues; nothing else touches them.
package engine
