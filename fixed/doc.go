// Package fixed holds the primitive types shared by every stage of the
// pipeline: integer fixed-point prices, the monotonic nanosecond clock,
// side/type/status tags, and the trivially copyable records that cross
// the SPSC queues. Nothing here allocates and nothing here locks.
package fixed
