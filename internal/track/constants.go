package track

import "time"

const (
	// DefaultFlushThreshold is the queue size that triggers an immediate flush.
	DefaultFlushThreshold = 10

	// DefaultFlushDelay is the debounce window after the most recent enqueue.
	DefaultFlushDelay = 5 * time.Second
)
