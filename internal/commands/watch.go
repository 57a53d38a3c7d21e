package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/lifecycle"
	"github.com/hay-kot/labstack/internal/printer"
)

// watchedSession is the part of the state machine the line reporter reads.
type watchedSession interface {
	Snapshot() lifecycle.Snapshot
	Updates() <-chan lifecycle.Snapshot
	Terminate() error
}

// errLaunchFailed marks a session that ended in error or was rejected.
var errLaunchFailed = errors.New("lab did not start")

// lineReporter prints one line per observed change for non-interactive use.
type lineReporter struct {
	p       *printer.Printer
	state   lab.State
	minutes int
	url     string
	notice  string
}

func newLineReporter(p *printer.Printer) *lineReporter {
	return &lineReporter{p: p, state: lab.StateCreated, minutes: -1}
}

func (r *lineReporter) observe(snap lifecycle.Snapshot) {
	if snap.State != r.state {
		detail := ""
		switch snap.State {
		case lab.StateLaunching:
			detail = snap.LabID
		case lab.StateActive:
			detail = snap.AccessURL
		case lab.StateError:
			detail = snap.LastError
		}
		r.p.Transition(string(r.state), string(snap.State), detail)
		r.state = snap.State
	}

	if snap.AccessURL != "" && snap.AccessURL != r.url {
		r.url = snap.AccessURL
		if snap.State != lab.StateActive {
			r.p.Infof("Access URL %s", snap.AccessURL)
		}
	}

	if snap.State == lab.StateActive {
		minutes := (snap.RemainingSeconds + 59) / 60
		if minutes != r.minutes {
			r.minutes = minutes
			r.p.Infof("%s remaining", snap.Remaining)
		}
	}

	if snap.Notice != "" && snap.Notice != r.notice {
		r.p.Warnf("%s", snap.Notice)
	}
	r.notice = snap.Notice
}

// watch reports snapshots until the session finishes, fails or ctx is
// cancelled. On cancellation the lab is terminated unless keep is set.
func watch(ctx context.Context, session watchedSession, r *lineReporter, keep bool) (lifecycle.Snapshot, error) {
	updates := session.Updates()
	r.observe(session.Snapshot())

	for {
		select {
		case <-ctx.Done():
			if !keep {
				if err := session.Terminate(); err != nil {
					return session.Snapshot(), err
				}
			}
			snap := session.Snapshot()
			r.observe(snap)
			return snap, nil
		case snap, ok := <-updates:
			if !ok {
				return session.Snapshot(), lab.ErrClosed
			}
			r.observe(snap)

			switch {
			case snap.State == lab.StateExpired, snap.State == lab.StateTerminated:
				return snap, nil
			case snap.State == lab.StateError:
				if !keep {
					_ = session.Terminate()
				}
				return snap, fmt.Errorf("%w: %s", errLaunchFailed, snap.LastError)
			case snap.State == lab.StateCreated && snap.Failure == lab.FailureCreation && !snap.Submitting:
				r.p.Errorf("%s", snap.LastError)
				return snap, fmt.Errorf("%w: %s", errLaunchFailed, snap.LastError)
			}
		}
	}
}
