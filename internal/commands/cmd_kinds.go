package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/labstack/internal/core/lab"
)

type KindsCmd struct {
	flags *Flags
}

// NewKindsCmd creates a new kinds command
func NewKindsCmd(flags *Flags) *KindsCmd {
	return &KindsCmd{flags: flags}
}

// Register adds the kinds command to the application
func (cmd *KindsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "kinds",
		Usage:       "List the lab kinds the backend can provision",
		UsageText:   "labstack kinds",
		Description: "Displays each lab kind with its default TTL and extension step after config rules are applied.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *KindsCmd) run(_ context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tTITLE\tTTL\tEXTEND\tDESCRIPTION")

	for _, info := range lab.Kinds() {
		kind := string(info.Kind)
		if kind == cfg.Lab.DefaultKind {
			kind += " *"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%dm\t+%dm\t%s\n",
			kind,
			info.Title,
			cfg.TTLFor(info.Kind),
			cfg.ExtendMinutesFor(info.Kind),
			info.Description,
		)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	choices := make([]string, 0, len(cfg.Lab.TTLOptions))
	for _, ttl := range cfg.Lab.TTLOptions {
		choices = append(choices, strconv.Itoa(ttl))
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "\nTTL choices (minutes): %s\n", strings.Join(choices, ", "))
	return nil
}
