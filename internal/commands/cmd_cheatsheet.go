package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/labstack/internal/cheatsheet"
	"github.com/hay-kot/labstack/internal/core/lab"
)

type CheatsheetCmd struct {
	flags *Flags
	raw   bool
}

// NewCheatsheetCmd creates a new cheatsheet command
func NewCheatsheetCmd(flags *Flags) *CheatsheetCmd {
	return &CheatsheetCmd{flags: flags}
}

// Register adds the cheatsheet command to the application
func (cmd *CheatsheetCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "cheatsheet",
		Aliases:   []string{"cs"},
		Usage:     "Show a command reference for a lab kind",
		UsageText: "labstack cheatsheet [kind]",
		Description: `Prints quick reference notes for the tools available inside a lab.

The kind defaults to lab.default_kind from the config.

Example:
  labstack cheatsheet sql-lab
  labstack cheatsheet linux-networking-lab --raw | less`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print markdown without styling",
				Destination: &cmd.raw,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CheatsheetCmd) run(_ context.Context, c *cli.Command) error {
	arg := c.Args().First()
	if arg == "" {
		arg = cmd.flags.Config.Lab.DefaultKind
	}
	kind, err := lab.ParseKind(arg)
	if err != nil {
		return err
	}

	out := c.Root().Writer

	fd := int(os.Stdout.Fd())
	if cmd.raw || !term.IsTerminal(fd) {
		md, err := cheatsheet.Markdown(kind)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, md)
		return err
	}

	width, _, err := term.GetSize(fd)
	if err != nil {
		width = 80
	}

	rendered, err := cheatsheet.Render(kind, width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
