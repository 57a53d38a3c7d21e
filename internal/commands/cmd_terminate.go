package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/labstack/internal/printer"
)

type TerminateCmd struct {
	flags *Flags
}

// NewTerminateCmd creates a new terminate command
func NewTerminateCmd(flags *Flags) *TerminateCmd {
	return &TerminateCmd{flags: flags}
}

// Register adds the terminate command to the application
func (cmd *TerminateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "terminate",
		Aliases:   []string{"rm"},
		Usage:     "Terminate one or more labs",
		UsageText: "labstack terminate <lab-id...>",
		Description: `Asks the backend to destroy the given labs. Use this to clean up labs
left running by a 'labstack launch --keep' session.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *TerminateCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	ids := c.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("lab id required\n\nUsage: labstack terminate <lab-id...>")
	}

	failed := 0
	for _, id := range ids {
		if err := cmd.flags.Service.Terminate(ctx, id); err != nil {
			p.Errorf("%v", err)
			failed++
			continue
		}
		p.Successf("Terminated %s", id)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lab(s) could not be terminated", failed, len(ids))
	}
	return nil
}
