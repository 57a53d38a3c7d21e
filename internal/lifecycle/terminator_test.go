package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminationCoordinator_AtMostOnce(t *testing.T) {
	be := &fakeBackend{terminateErr: errors.New("boom")}
	scope := NewScope(context.Background())
	term := NewTerminationCoordinator(scope, be, time.Second, zerolog.Nop())

	outcomes := make(chan error, 2)
	done := func(_ context.Context, err error) { outcomes <- err }

	assert.True(t, term.Request("lab-a", done))
	assert.False(t, term.Request("lab-a", done))
	assert.True(t, term.Requested("lab-a"))
	assert.False(t, term.Requested("lab-b"))

	scope.Close()

	assert.Equal(t, []string{"lab-a"}, be.terminateCalls())
	require.Len(t, outcomes, 1)
	assert.EqualError(t, <-outcomes, "boom")
}

func TestTerminationCoordinator_DetachedFromScope(t *testing.T) {
	be := &fakeBackend{blockTerminate: true}
	scope := NewScope(context.Background())
	term := NewTerminationCoordinator(scope, be, 30*time.Millisecond, zerolog.Nop())

	outcomes := make(chan error, 1)
	term.Request("lab-a", func(_ context.Context, err error) { outcomes <- err })

	// Closing the scope does not cancel the call; only the timeout ends it.
	start := time.Now()
	scope.Close()
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.ErrorIs(t, <-outcomes, context.DeadlineExceeded)
}
