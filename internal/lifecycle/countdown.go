package lifecycle

import (
	"context"
	"math"
	"time"

	"k8s.io/utils/clock"
)

// maxRemaining is the count Extend saturates at.
const maxRemaining = math.MaxInt32

// CountdownTimer holds the remaining lifetime of an active lab and drives a
// one-second ticker. The ticker goroutine only signals; the count itself is
// changed by Tick and Extend, which must be called from the machine's loop.
type CountdownTimer struct {
	scope *Scope
	clock clock.WithTicker

	remaining int
	task      *Task
	gen       uint64
}

// NewCountdownTimer creates a stopped timer.
func NewCountdownTimer(scope *Scope, clk clock.WithTicker) *CountdownTimer {
	return &CountdownTimer{scope: scope, clock: clk}
}

// Start resets the count to seconds and arms a fresh one-second ticker.
// emit is called from the ticker goroutine with the tick's generation.
func (c *CountdownTimer) Start(seconds int, emit func(ctx context.Context, gen uint64) bool) {
	c.Stop()

	c.remaining = min(max(seconds, 0), maxRemaining)
	gen := c.gen
	ticker := c.clock.NewTicker(time.Second)
	c.task = c.scope.Go(func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if !emit(ctx, gen) {
					return
				}
			}
		}
	})
}

// Tick applies one tick from generation gen. It returns the new count and
// whether this tick expired the timer; ok is false for ticks from a stopped
// or replaced ticker. Expiry stops the timer, so it is reported once.
func (c *CountdownTimer) Tick(gen uint64) (remaining int, expired, ok bool) {
	if c.task == nil || gen != c.gen {
		return c.remaining, false, false
	}

	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.Stop()
		return 0, true, true
	}
	return c.remaining, false, true
}

// Extend adds seconds to the count, saturating at maxRemaining. The ticker
// phase is left alone.
func (c *CountdownTimer) Extend(seconds int) {
	if seconds <= 0 {
		return
	}
	if seconds > maxRemaining-c.remaining {
		c.remaining = maxRemaining
		return
	}
	c.remaining += seconds
}

// Stop halts the ticker. Idempotent.
func (c *CountdownTimer) Stop() {
	if c.task == nil {
		return
	}
	c.task.Stop()
	c.task = nil
	c.gen++
}

// Remaining returns the current count.
func (c *CountdownTimer) Remaining() int {
	return c.remaining
}

// Running reports whether the ticker is live.
func (c *CountdownTimer) Running() bool {
	return c.task != nil
}
