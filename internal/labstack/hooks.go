package labstack

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/styles"
	"github.com/hay-kot/labstack/pkg/executil"
	"github.com/hay-kot/labstack/pkg/tmpl"
)

// HookRunner renders and executes configured shell commands for lab events.
type HookRunner struct {
	log      zerolog.Logger
	executor executil.Executor
	stdout   io.Writer
	stderr   io.Writer
}

// NewHookRunner creates a new HookRunner.
func NewHookRunner(log zerolog.Logger, executor executil.Executor, stdout, stderr io.Writer) *HookRunner {
	return &HookRunner{
		log:      log,
		executor: executor,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// Run executes commands in order, stopping at the first failure.
func (h *HookRunner) Run(ctx context.Context, name string, commands []string, data config.CommandData) error {
	h.log.Debug().
		Str("hook", name).
		Str("lab_id", data.ID).
		Int("command_count", len(commands)).
		Msg("running hook")

	for i, cmdTmpl := range commands {
		rendered, err := tmpl.Render(cmdTmpl, data)
		if err != nil {
			return fmt.Errorf("render %s command %q: %w", name, cmdTmpl, err)
		}

		if h.quiet() {
			// Output is captured so a failure can still say what went wrong.
			out, err := h.executor.Run(ctx, "sh", "-c", rendered)
			if err != nil {
				if last := lastLine(out); last != "" {
					return fmt.Errorf("run %s command %q: %w: %s", name, rendered, err, last)
				}
				return fmt.Errorf("run %s command %q: %w", name, rendered, err)
			}
			continue
		}

		h.printCommandHeader(name, i+1, len(commands), rendered)

		if err := h.executor.RunStream(ctx, h.stdout, h.stderr, "sh", "-c", rendered); err != nil {
			return fmt.Errorf("run %s command %q: %w", name, rendered, err)
		}
	}

	return nil
}

func (h *HookRunner) quiet() bool {
	return h.stdout == io.Discard
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func (h *HookRunner) printCommandHeader(name string, cmdNum, totalCmds int, cmd string) {
	divider := styles.DividerStyle.Render(strings.Repeat("─", 50))
	header := styles.CommandHeaderStyle.Render(name)
	cmdLabel := styles.DividerStyle.Render(fmt.Sprintf("[%d/%d]", cmdNum, totalCmds))
	command := styles.CommandStyle.Render(cmd)

	_, _ = fmt.Fprintln(h.stdout, divider)
	_, _ = fmt.Fprintf(h.stdout, "%s %s %s\n", header, cmdLabel, command)
	_, _ = fmt.Fprintln(h.stdout, divider)
}
