package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/lifecycle"
	"github.com/hay-kot/labstack/internal/printer"
)

type scriptedSession struct {
	snaps      chan lifecycle.Snapshot
	current    lifecycle.Snapshot
	terminates int
}

func newScriptedSession(snaps ...lifecycle.Snapshot) *scriptedSession {
	s := &scriptedSession{
		snaps:   make(chan lifecycle.Snapshot, len(snaps)),
		current: lifecycle.Snapshot{State: lab.StateCreated, Remaining: "00:00"},
	}
	for _, snap := range snaps {
		s.snaps <- snap
	}
	return s
}

func (s *scriptedSession) Snapshot() lifecycle.Snapshot {
	return s.current
}

func (s *scriptedSession) Updates() <-chan lifecycle.Snapshot {
	return s.snaps
}

func (s *scriptedSession) Terminate() error {
	s.terminates++
	if s.current.State == lab.StateLaunching || s.current.State == lab.StateActive || s.current.State == lab.StateError {
		s.current.State = lab.StateTerminated
	}
	return nil
}

func active(remaining int) lifecycle.Snapshot {
	return lifecycle.Snapshot{
		LabID:            "lab-1",
		State:            lab.StateActive,
		AccessURL:        "http://127.0.0.1:7683",
		RemainingSeconds: remaining,
		Remaining:        lab.FormatRemaining(remaining),
		Live:             true,
	}
}

func TestWatch_RunsToExpiry(t *testing.T) {
	session := newScriptedSession(
		lifecycle.Snapshot{LabID: "lab-1", State: lab.StateLaunching},
		active(120),
		active(119),
		active(60),
		active(1),
		lifecycle.Snapshot{LabID: "lab-1", State: lab.StateExpired, AccessURL: "http://127.0.0.1:7683"},
	)

	var buf bytes.Buffer
	snap, err := watch(context.Background(), session, newLineReporter(printer.Plain(&buf)), false)
	require.NoError(t, err)
	assert.Equal(t, lab.StateExpired, snap.State)
	assert.Zero(t, session.terminates)

	want := "created → launching  lab-1\n" +
		"launching → active  http://127.0.0.1:7683\n" +
		"• 02:00 remaining\n" +
		"• 01:00 remaining\n" +
		"active → expired\n"
	assert.Equal(t, want, buf.String())
}

func TestWatch_ErrorTerminatesUnlessKept(t *testing.T) {
	failed := lifecycle.Snapshot{
		LabID:     "lab-1",
		State:     lab.StateError,
		LastError: "The lab failed to start: backend reported error: no capacity",
		Failure:   lab.FailureBackend,
	}

	tests := []struct {
		name       string
		keep       bool
		terminates int
	}{
		{name: "terminate", keep: false, terminates: 1},
		{name: "keep", keep: true, terminates: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newScriptedSession(failed)
			session.current = failed

			var buf bytes.Buffer
			_, err := watch(context.Background(), session, newLineReporter(printer.Plain(&buf)), tt.keep)
			require.ErrorIs(t, err, errLaunchFailed)
			assert.ErrorContains(t, err, "no capacity")
			assert.Equal(t, tt.terminates, session.terminates)
			assert.Contains(t, buf.String(), "created → error")
		})
	}
}

func TestWatch_CreationRejected(t *testing.T) {
	rejected := lifecycle.Snapshot{
		State:     lab.StateCreated,
		LastError: "Could not launch the lab: lab creation failed: Unknown lab_type",
		Failure:   lab.FailureCreation,
	}
	session := newScriptedSession(lifecycle.Snapshot{State: lab.StateCreated, Submitting: true}, rejected)

	var buf bytes.Buffer
	_, err := watch(context.Background(), session, newLineReporter(printer.Plain(&buf)), false)
	require.ErrorIs(t, err, errLaunchFailed)
	assert.Contains(t, buf.String(), "✘ Could not launch the lab")
}

func TestWatch_InterruptTerminates(t *testing.T) {
	session := newScriptedSession()
	session.current = active(300)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	snap, err := watch(ctx, session, newLineReporter(printer.Plain(&buf)), false)
	require.NoError(t, err)
	assert.Equal(t, 1, session.terminates)
	assert.Equal(t, lab.StateTerminated, snap.State)
	assert.Contains(t, buf.String(), "active → terminated")
}

func TestWatch_InterruptKeep(t *testing.T) {
	session := newScriptedSession()
	session.current = active(300)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	snap, err := watch(ctx, session, newLineReporter(printer.Plain(&buf)), true)
	require.NoError(t, err)
	assert.Zero(t, session.terminates)
	assert.Equal(t, lab.StateActive, snap.State)
}

func TestWatch_NoticeOnce(t *testing.T) {
	terminated := lifecycle.Snapshot{LabID: "lab-1", State: lab.StateTerminated, Notice: "terminate lab-1 failed"}
	session := newScriptedSession(terminated)

	var buf bytes.Buffer
	_, err := watch(context.Background(), session, newLineReporter(printer.Plain(&buf)), false)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("terminate lab-1 failed")))
}

func TestInteractive(t *testing.T) {
	assert.False(t, Interactive(nil))
	assert.False(t, Interactive([]string{"status", "lab-1"}))
	assert.False(t, Interactive([]string{"launch", "sql-lab", "--plain"}))
}
