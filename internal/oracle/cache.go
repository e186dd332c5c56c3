package oracle

import (
	"sync"
	"time"
)

// baselineGrace is how long a baseline counts as fresh. Repeated calls
// inside the grace period compare against the same baseline instead of
// rebasing on every call.
const baselineGrace = 30 * time.Second

type baseline struct {
	price float64
	at    time.Time
}

// ChangeCache keeps one price baseline per requested window. It lives in
// process memory only and resets on restart.
type ChangeCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[int]baseline
}

// NewChangeCache creates an empty cache on the real clock.
func NewChangeCache() *ChangeCache {
	return &ChangeCache{
		now:     time.Now,
		entries: make(map[int]baseline),
	}
}

// Change returns the percent change of current against the window's
// baseline. A missing baseline is seeded at current and yields zero. A
// baseline older than the window is replaced at current and also yields
// zero, since a rebase has nothing to compare against. A fresh baseline
// (inside the grace period) is kept as-is.
func (c *ChangeCache) Change(windowDays int, current float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.entries[windowDays]
	if !ok {
		c.entries[windowDays] = baseline{price: current, at: now}
		return 0
	}

	age := now.Sub(entry.at)
	window := time.Duration(windowDays) * 24 * time.Hour

	if age > baselineGrace && age > window {
		c.entries[windowDays] = baseline{price: current, at: now}
		return 0
	}
	if entry.price == 0 {
		return 0
	}
	return (current - entry.price) / entry.price * 100
}
