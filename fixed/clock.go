package fixed

import "time"

// epoch anchors the monotonic clock. time.Since reads the runtime's
// monotonic counter, so Now is strictly non-decreasing on a thread and
// never jumps with wall-clock adjustments.
var epoch = time.Now()

// Now returns monotonic nanoseconds since process start.
func Now() Timestamp {
	return Timestamp(time.Since(epoch))
}
