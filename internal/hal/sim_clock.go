package hal

import (
	"sync"
	"time"
)

// SimClock is a manually advanced Clock for tests. Advance moves simulated
// time forward and fires due timers in due order; callbacks run without the
// clock lock held, so they may arm or stop timers freely.
type SimClock struct {
	mu     sync.Mutex
	now    time.Duration
	nextID uint64
	timers map[uint64]*simTimer
}

func NewSimClock() *SimClock {
	return &SimClock{timers: make(map[uint64]*simTimer)}
}

func (c *SimClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *SimClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	t := &simTimer{clock: c, id: c.nextID, due: c.now + d, fn: fn}
	c.timers[t.id] = t

	return t
}

// Advance moves simulated time forward by d, firing timers as their due
// times are reached. Timers armed by callbacks inside the window fire too.
func (c *SimClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d

	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}

		if next.due > c.now {
			c.now = next.due
		}
		delete(c.timers, next.id)
		c.mu.Unlock()

		next.fn()

		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// nextDue returns the earliest pending timer due at or before target,
// ties resolving in arming order. Caller holds the lock.
func (c *SimClock) nextDue(target time.Duration) *simTimer {
	var next *simTimer
	for _, t := range c.timers {
		if t.due > target {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.id < next.id) {
			next = t
		}
	}

	return next
}

type simTimer struct {
	clock *SimClock
	id    uint64
	due   time.Duration
	fn    func()
}

func (t *simTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	_, pending := t.clock.timers[t.id]
	delete(t.clock.timers, t.id)

	return pending
}
