package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/labstack"
	"github.com/hay-kot/labstack/internal/lifecycle"
	"github.com/hay-kot/labstack/internal/printer"
	"github.com/hay-kot/labstack/internal/tui"
)

type LaunchCmd struct {
	flags *Flags
	ttl   int
	keep  bool
	plain bool
}

// NewLaunchCmd creates a new launch command
func NewLaunchCmd(flags *Flags) *LaunchCmd {
	return &LaunchCmd{flags: flags}
}

// Register adds the launch command to the application
func (cmd *LaunchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, cmd.command())
	return app
}

func (cmd *LaunchCmd) command() *cli.Command {
	return &cli.Command{
		Name:      "launch",
		Usage:     "Launch a lab and follow it until it expires",
		UsageText: "labstack launch [kind] [options]",
		Description: `Requests a new lab from the backend, polls until it is ready, then counts
down its lifetime.

On a terminal an interactive view is shown; run without a kind to pick one
from a form. Otherwise one line is printed per change.

Leaving the view or interrupting the command terminates the lab unless
--keep is set.

Example:
  labstack launch
  labstack launch sql-lab --ttl 60
  labstack launch python-lab --plain --keep`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "ttl",
				Aliases:     []string{"t"},
				Usage:       "lifetime in minutes (defaults to the kind's configured TTL)",
				Destination: &cmd.ttl,
			},
			&cli.BoolFlag{
				Name:        "keep",
				Aliases:     []string{"k"},
				Usage:       "leave the lab running when the command exits",
				Destination: &cmd.keep,
			},
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "print line output even on a terminal",
				Destination: &cmd.plain,
			},
		},
		Action: cmd.run,
	}
}

// Interactive reports whether the command line in args (subcommand first)
// will take over the terminal. main uses it to decide whether logs must be
// buffered.
func Interactive(args []string) bool {
	if len(args) == 0 || args[0] != "launch" {
		return false
	}
	for _, a := range args[1:] {
		if a == "--plain" || a == "-plain" {
			return false
		}
	}
	return isTerminal()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (cmd *LaunchCmd) run(ctx context.Context, c *cli.Command) error {
	svc := cmd.flags.Service
	interactive := !cmd.plain && isTerminal()

	kindArg := c.Args().First()
	ttl := cmd.ttl
	if kindArg == "" && interactive {
		if err := runLaunchForm(svc.Config(), &kindArg, &ttl); err != nil {
			return fmt.Errorf("launch form: %w", err)
		}
	}

	kind, ttl, err := svc.ResolveLaunch(kindArg, ttl)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interactive {
		return cmd.runTUI(ctx, svc, kind, ttl)
	}
	return cmd.runPlain(ctx, svc, c.Root().Writer, kind, ttl)
}

func (cmd *LaunchCmd) runPlain(ctx context.Context, svc *labstack.Service, w io.Writer, kind lab.Kind, ttl int) error {
	p := printer.New(w)

	// Detached so an interrupt still leaves time to terminate the lab.
	machine := svc.NewMachine(context.WithoutCancel(ctx), labstack.MachineOptions{})
	defer svc.Wait()
	defer machine.Close()

	p.Infof("Launching %s for %d minutes", kind.Info().Title, ttl)
	if err := machine.Launch(kind, ttl); err != nil {
		return err
	}

	snap, err := watch(ctx, machine, newLineReporter(p), cmd.keep)
	cmd.summarize(printer.Ctx(ctx), snap)
	return err
}

func (cmd *LaunchCmd) runTUI(ctx context.Context, svc *labstack.Service, kind lab.Kind, ttl int) error {
	svc.SetHookOutput(io.Discard, io.Discard)

	machine := svc.NewMachine(context.WithoutCancel(ctx), labstack.MachineOptions{})
	defer svc.Wait()
	defer machine.Close()

	if err := machine.Launch(kind, ttl); err != nil {
		return err
	}

	m := tui.New(machine, svc, tui.Options{ExtendMinutes: svc.ExtendMinutes(kind)})
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}

	if !cmd.keep {
		if err := machine.Terminate(); err != nil {
			return err
		}
	}

	cmd.summarize(printer.Ctx(ctx), machine.Snapshot())
	return nil
}

func (cmd *LaunchCmd) summarize(p *printer.Printer, snap lifecycle.Snapshot) {
	if snap.LabID == "" {
		return
	}

	switch snap.State {
	case lab.StateTerminated:
		p.Successf("Lab %s terminated", snap.LabID)
	case lab.StateExpired:
		p.Infof("Lab %s expired", snap.LabID)
	case lab.StateLaunching, lab.StateActive, lab.StateError:
		p.Warnf("Lab %s is still running; stop it with 'labstack terminate %s'", snap.LabID, snap.LabID)
	}
}
