package client

import (
	"sync"
	"time"
)

const tickInterval = 250 * time.Millisecond

// Countdown drives the wait for a synchronized start. The remaining time
// is re-evaluated against the authoritative start instant on a short fixed
// interval, so local clock drift during the wait self-corrects. The fire
// callback runs exactly once, at or after the start instant, never before;
// scheduling a new start cancels the one in flight.
type Countdown struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	current chan struct{} // nil when idle
}

// NewCountdown returns an idle countdown with a sub-second tick interval.
func NewCountdown() *Countdown {
	return newCountdown(tickInterval, time.Now)
}

func newCountdown(interval time.Duration, now func() time.Time) *Countdown {
	return &Countdown{interval: interval, now: now}
}

// Schedule starts counting down to startAt, superseding any countdown in
// flight. onTick receives the remaining duration on every re-evaluation;
// fire runs once when the remaining time reaches zero.
func (c *Countdown) Schedule(startAt time.Time, onTick func(remaining time.Duration), fire func()) {
	c.mu.Lock()
	if c.current != nil {
		close(c.current)
	}
	stop := make(chan struct{})
	c.current = stop
	c.mu.Unlock()

	go c.run(startAt, onTick, fire, stop)
}

// Cancel stops any countdown in flight without firing.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		close(c.current)
		c.current = nil
	}
}

// Active reports whether a countdown is in flight.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Countdown) run(startAt time.Time, onTick func(time.Duration), fire func(), stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		remaining := startAt.Sub(c.now())
		if remaining < 0 {
			remaining = 0
		}
		if onTick != nil {
			onTick(remaining)
		}
		if remaining == 0 {
			c.tryFire(stop, fire)
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// tryFire runs fire only if this schedule is still the current one, which
// guards against duplicate zero-crossings from a superseded timer.
func (c *Countdown) tryFire(stop chan struct{}, fire func()) {
	c.mu.Lock()
	if c.current != stop {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	if fire != nil {
		fire()
	}
}
