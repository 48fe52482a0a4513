package presence

import "time"

const (
	// DefaultInterval is how often the heartbeat considers pinging.
	DefaultInterval = 20 * time.Second

	// DefaultRecencyWindow is how recently the user must have interacted for
	// a tick to count as active.
	DefaultRecencyWindow = 10 * time.Second

	// LiveWindow is the read-side activity window: a device whose last seen
	// timestamp falls inside it counts toward the live-user total.
	LiveWindow = 60 * time.Second
)
