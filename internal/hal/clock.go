package hal

import "time"

// wallClock reports elapsed time since construction using the runtime's
// monotonic clock, so readings are immune to wall-clock adjustments.
type wallClock struct {
	start time.Time
}

// NewWallClock creates a Clock backed by the system monotonic clock
func NewWallClock() Clock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c *wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return wallTimer{timer: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	timer *time.Timer
}

func (t wallTimer) Stop() bool {
	return t.timer.Stop()
}
