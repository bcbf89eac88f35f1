package sntest

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// CountingClock is a [clock.Clock] that delegates to a real clock,
// while recording the duration of every timer it creates.
//
// The network only uses timers for waits (dial and ping timeouts, backoff),
// so tests use the recorded durations to count sleeps precisely.
type CountingClock struct {
	clock.Clock

	mu     sync.Mutex
	timers []time.Duration
}

// NewCountingClock returns a CountingClock backed by the real wall clock.
func NewCountingClock() *CountingClock {
	return &CountingClock{Clock: clock.New()}
}

func (c *CountingClock) Timer(d time.Duration) *clock.Timer {
	c.mu.Lock()
	c.timers = append(c.timers, d)
	c.mu.Unlock()

	return c.Clock.Timer(d)
}

// Timers returns a copy of every duration passed to Timer so far.
func (c *CountingClock) Timers() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.timers))
	copy(out, c.timers)
	return out
}

// TimersOf returns how many timers were created with exactly duration d.
func (c *CountingClock) TimersOf(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, td := range c.timers {
		if td == d {
			n++
		}
	}
	return n
}
