// internal/game/timer.go
//
// Countdown drives the per-turn timer: a fast fixed-interval tick for a
// smooth progress bar, an expiry callback that forces an empty-answer
// submission, and an external Stop to prevent double submission when the
// answer arrives first.

package game

import (
	"sync"
	"time"
)

// Countdown ticks down from a total duration. onTick receives the remaining
// time every tick (including a final 0); onExpire fires exactly once when
// the countdown reaches zero, unless Stop was called first.
type Countdown struct {
	total    time.Duration
	tick     time.Duration
	onTick   func(remaining time.Duration)
	onExpire func()

	stop chan struct{}
	once sync.Once
}

func NewCountdown(total, tick time.Duration, onTick func(time.Duration), onExpire func()) *Countdown {
	return &Countdown{
		total:    total,
		tick:     tick,
		onTick:   onTick,
		onExpire: onExpire,
		stop:     make(chan struct{}),
	}
}

// Start launches the countdown goroutine.
func (c *Countdown) Start() {
	go c.run()
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	started := time.Now()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			remaining := c.total - time.Since(started)
			if remaining <= 0 {
				if c.onTick != nil {
					c.onTick(0)
				}
				c.Stop()
				c.onExpire()
				return
			}
			if c.onTick != nil {
				c.onTick(remaining)
			}
		}
	}
}

// Stop cancels the countdown. Safe to call multiple times and from any
// goroutine; after Stop returns, onExpire will not fire (unless it already
// has).
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.stop) })
}
