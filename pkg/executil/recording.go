package executil

import (
	"context"
	"io"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Cmd  string
	Args []string
}

// RecordingExecutor captures commands for testing.
// Errors maps command names to the error returned for them.
type RecordingExecutor struct {
	mu       sync.Mutex
	commands []RecordedCommand

	Output []byte
	Errors map[string]error
}

// Run records the command and returns the configured output/error.
func (e *RecordingExecutor) Run(_ context.Context, cmd string, args ...string) ([]byte, error) {
	return e.Output, e.record(cmd, args...)
}

// RunStream records the command and writes the configured output to stdout.
func (e *RecordingExecutor) RunStream(_ context.Context, stdout, _ io.Writer, cmd string, args ...string) error {
	err := e.record(cmd, args...)
	if stdout != nil && len(e.Output) > 0 {
		_, _ = stdout.Write(e.Output)
	}
	return err
}

// Commands returns a copy of the recorded commands.
func (e *RecordingExecutor) Commands() []RecordedCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RecordedCommand(nil), e.commands...)
}

func (e *RecordingExecutor) record(cmd string, args ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commands = append(e.commands, RecordedCommand{Cmd: cmd, Args: args})
	if e.Errors != nil {
		return e.Errors[cmd]
	}
	return nil
}
