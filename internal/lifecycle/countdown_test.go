package lifecycle

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func newCountdown(t *testing.T) (*CountdownTimer, *testingclock.FakeClock, <-chan uint64) {
	t.Helper()

	scope := NewScope(context.Background())
	t.Cleanup(scope.Close)

	clk := testingclock.NewFakeClock(time.Now())
	c := NewCountdownTimer(scope, clk)

	ticks := make(chan uint64, 8)
	c.Start(2, func(ctx context.Context, gen uint64) bool {
		select {
		case ticks <- gen:
			return true
		case <-ctx.Done():
			return false
		}
	})
	return c, clk, ticks
}

func nextTick(t *testing.T, clk *testingclock.FakeClock, ticks <-chan uint64) uint64 {
	t.Helper()
	clk.Step(time.Second)
	select {
	case gen := <-ticks:
		return gen
	case <-time.After(waitFor):
		t.Fatal("no tick delivered")
		return 0
	}
}

func TestCountdownTimer_ExpiresOnce(t *testing.T) {
	c, clk, ticks := newCountdown(t)
	require.True(t, c.Running())

	remaining, expired, ok := c.Tick(nextTick(t, clk, ticks))
	assert.True(t, ok)
	assert.False(t, expired)
	assert.Equal(t, 1, remaining)

	gen := nextTick(t, clk, ticks)
	remaining, expired, ok = c.Tick(gen)
	assert.True(t, ok)
	assert.True(t, expired)
	assert.Equal(t, 0, remaining)
	assert.False(t, c.Running())

	// A third second produces nothing and a replayed tick is rejected.
	clk.Step(time.Second)
	select {
	case <-ticks:
		t.Fatal("tick after expiry")
	case <-time.After(20 * time.Millisecond):
	}

	remaining, expired, ok = c.Tick(gen)
	assert.False(t, ok)
	assert.False(t, expired)
	assert.Equal(t, 0, remaining)
}

func TestCountdownTimer_Extend(t *testing.T) {
	c, clk, ticks := newCountdown(t)

	c.Extend(1800)
	assert.Equal(t, 1802, c.Remaining())

	remaining, expired, ok := c.Tick(nextTick(t, clk, ticks))
	assert.True(t, ok)
	assert.False(t, expired)
	assert.Equal(t, 1801, remaining)

	c.Extend(-5)
	assert.Equal(t, 1801, c.Remaining())
}

func TestCountdownTimer_ExtendSaturates(t *testing.T) {
	c, clk, ticks := newCountdown(t)

	c.Extend(math.MaxInt)
	assert.Equal(t, maxRemaining, c.Remaining())
	c.Extend(math.MaxInt / 60 * 60)
	assert.Equal(t, maxRemaining, c.Remaining())

	remaining, expired, ok := c.Tick(nextTick(t, clk, ticks))
	assert.True(t, ok)
	assert.False(t, expired)
	assert.Equal(t, maxRemaining-1, remaining)
}

func TestCountdownTimer_StopRejectsQueuedTicks(t *testing.T) {
	c, clk, ticks := newCountdown(t)

	gen := nextTick(t, clk, ticks)
	c.Stop()
	c.Stop()

	_, _, ok := c.Tick(gen)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Remaining())
	assert.False(t, c.Running())
}
