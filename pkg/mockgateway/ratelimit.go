package mockgateway

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// limiter is a fixed-window request limiter keyed by bearer token.
type limiter struct {
	rpm   int
	clock clock.Clock

	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

func newLimiter(rpm int, clk clock.Clock) *limiter {
	return &limiter{rpm: rpm, clock: clk, counters: make(map[string]*counter)}
}

// allow counts one request for key. When the window is exhausted it
// reports false and how long until the window resets.
func (l *limiter) allow(key string) (bool, time.Duration) {
	if l == nil || l.rpm <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		l.counters[key] = &counter{count: 1, windowAt: now}
		return true, 0
	}

	c.count++
	if c.count > l.rpm {
		return false, c.windowAt.Add(time.Minute).Sub(now)
	}
	return true, 0
}
