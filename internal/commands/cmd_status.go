package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/printer"
)

type StatusCmd struct {
	flags  *Flags
	format string
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags) *StatusCmd {
	return &StatusCmd{flags: flags}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "status",
		Usage:       "Query the backend once for a lab's status",
		UsageText:   "labstack status <lab-id>",
		Description: "Prints the provisioning status and access URL reported by the backend. Exits non-zero when the backend reports an error.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

type statusOutput struct {
	LabID     string `json:"lab_id"`
	Status    string `json:"status"`
	AccessURL string `json:"access_url,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("lab id required\n\nUsage: labstack status <lab-id>")
	}

	report, err := cmd.flags.Service.Status(ctx, id)
	if err != nil {
		return err
	}

	out := statusOutput{
		LabID:     id,
		Status:    report.Status.String(),
		AccessURL: report.AccessURL,
		Message:   report.Message,
	}

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		p := printer.New(c.Root().Writer)
		p.Section(id)
		p.KeyValue("status", out.Status)
		if out.AccessURL != "" {
			p.KeyValue("url", out.AccessURL)
		}
		if out.Message != "" {
			p.KeyValue("message", out.Message)
		}
	}

	if report.Status == lab.StatusError {
		return cli.Exit("", 1)
	}
	return nil
}
