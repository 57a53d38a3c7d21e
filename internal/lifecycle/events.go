package lifecycle

import "github.com/hay-kot/labstack/internal/core/lab"

// event is anything processed by the machine loop.
type event interface{ isEvent() }

// Intent events carry a done channel the loop closes once their effect is
// visible through Snapshot.
type (
	launchIntent struct {
		kind lab.Kind
		ttl  int
		done chan struct{}
	}
	retryIntent  struct{ done chan struct{} }
	extendIntent struct {
		minutes int
		done    chan struct{}
	}
	terminateIntent struct{ done chan struct{} }
	resetIntent     struct{ done chan struct{} }
)

// task results.
type (
	createResult struct {
		gen uint64
		id  string
		err error
	}
	tickEvent       struct{ gen uint64 }
	terminateResult struct {
		labID string
		err   error
	}
	extendResult struct {
		labID   string
		minutes int
		err     error
	}
)

func (launchIntent) isEvent()    {}
func (retryIntent) isEvent()     {}
func (extendIntent) isEvent()    {}
func (terminateIntent) isEvent() {}
func (resetIntent) isEvent()     {}
func (createResult) isEvent()    {}
func (pollResult) isEvent()      {}
func (tickEvent) isEvent()       {}
func (terminateResult) isEvent() {}
func (extendResult) isEvent()    {}
