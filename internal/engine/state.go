package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// PauseFlag is the live pause toggle shared between the engine and the
// control API. The zero value is unpaused.
type PauseFlag struct {
	paused atomic.Bool
}

// Pause stops new files from being handled.
func (p *PauseFlag) Pause() { p.paused.Store(true) }

// Resume lets new files through again.
func (p *PauseFlag) Resume() { p.paused.Store(false) }

// Paused reports the current state. A nil flag is never paused.
func (p *PauseFlag) Paused() bool {
	if p == nil {
		return false
	}
	return p.paused.Load()
}

// DailyCounter counts moves for the current local day and resets itself at
// the first access after midnight.
type DailyCounter struct {
	now func() time.Time

	mu    sync.Mutex
	day   string
	count int
}

// NewDailyCounter returns a counter using the wall clock.
func NewDailyCounter() *DailyCounter {
	return NewDailyCounterWithClock(time.Now)
}

// NewDailyCounterWithClock returns a counter reading the time from now.
func NewDailyCounterWithClock(now func() time.Time) *DailyCounter {
	if now == nil {
		now = time.Now
	}
	return &DailyCounter{now: now}
}

// Seed sets today's count, typically from persisted history at startup.
func (c *DailyCounter) Seed(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = c.today()
	c.count = max(n, 0)
}

// Increment adds one move and returns the new total for today.
func (c *DailyCounter) Increment() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	c.count++
	return c.count
}

// Value returns today's total.
func (c *DailyCounter) Value() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	return c.count
}

func (c *DailyCounter) rollover() {
	if today := c.today(); today != c.day {
		c.day = today
		c.count = 0
	}
}

func (c *DailyCounter) today() string {
	return c.now().Local().Format(time.DateOnly)
}

// StartOfDay returns local midnight for t.
func StartOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
