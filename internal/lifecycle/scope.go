package lifecycle

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Scope owns every background task started for one machine. Closing the
// scope cancels all tasks and waits for them to return.
//
// The group is only a join point. Tasks report outcomes as machine events,
// and one task failing must not cancel its siblings, so every task returns
// nil.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewScope creates a Scope whose tasks derive from parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Task is a cancellation handle for one background activity.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Go runs fn in a new task. After Close, fn is not run and the returned
// task is already finished.
func (s *Scope) Go(fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(s.ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		close(t.done)
		return t
	}

	s.group.Go(func() error {
		defer close(t.done)
		defer cancel()
		fn(ctx)
		return nil
	})
	return t
}

// Close cancels all tasks and blocks until they have returned. Safe to call
// more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	_ = s.group.Wait()
}

// Stop cancels the task and waits for it to return. A nil or finished task
// is a no-op.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// Done is closed once the task has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
