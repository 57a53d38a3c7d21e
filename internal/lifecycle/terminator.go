package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/labstack/internal/core/lab"
)

// TerminationCoordinator sends at most one terminate call per lab id. Calls
// run detached from the caller so teardown does not abort them, bounded by
// the configured timeout.
type TerminationCoordinator struct {
	scope   *Scope
	backend lab.Backend
	timeout time.Duration
	log     zerolog.Logger

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewTerminationCoordinator creates a coordinator whose calls run in scope.
func NewTerminationCoordinator(scope *Scope, backend lab.Backend, timeout time.Duration, log zerolog.Logger) *TerminationCoordinator {
	return &TerminationCoordinator{
		scope:   scope,
		backend: backend,
		timeout: timeout,
		log:     log,
		sent:    make(map[string]struct{}),
	}
}

// Request issues the terminate call for id unless one was already issued.
// done receives the backend outcome; it is not called for duplicates.
// Returns false for a duplicate.
func (t *TerminationCoordinator) Request(id string, done func(ctx context.Context, err error)) bool {
	t.mu.Lock()
	if _, dup := t.sent[id]; dup {
		t.mu.Unlock()
		t.log.Debug().Str("lab_id", id).Msg("terminate already requested")
		return false
	}
	t.sent[id] = struct{}{}
	t.mu.Unlock()

	t.scope.Go(func(ctx context.Context) {
		callCtx := context.WithoutCancel(ctx)
		if t.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, t.timeout)
			defer cancel()
		}

		err := t.backend.TerminateLab(callCtx, id)
		if err != nil {
			t.log.Warn().Err(err).Str("lab_id", id).Msg("terminate request failed")
		} else {
			t.log.Info().Str("lab_id", id).Msg("lab terminated")
		}

		if done != nil {
			done(ctx, err)
		}
	})
	return true
}

// Requested reports whether a terminate call was issued for id.
func (t *TerminationCoordinator) Requested(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sent[id]
	return ok
}
