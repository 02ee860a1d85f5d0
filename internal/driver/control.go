package driver

import (
	"context"
	"sync/atomic"
	"time"
)

// Control carries the pause and cancel requests into a running Driver. The
// zero value is ready to use and safe for concurrent use.
type Control struct {
	paused    atomic.Bool
	cancelled atomic.Bool
}

func (c *Control) Pause() {
	if !c.cancelled.Load() {
		c.paused.Store(true)
	}
}

func (c *Control) Resume() { c.paused.Store(false) }

// Toggle flips the pause flag and reports the new value.
func (c *Control) Toggle() bool {
	for {
		old := c.paused.Load()
		if c.cancelled.Load() {
			return false
		}
		if c.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Cancel stops dispatch at the next boundary. It also clears a pause so a
// paused run can exit.
func (c *Control) Cancel() {
	c.cancelled.Store(true)
	c.paused.Store(false)
}

func (c *Control) Paused() bool    { return c.paused.Load() }
func (c *Control) Cancelled() bool { return c.cancelled.Load() }

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
