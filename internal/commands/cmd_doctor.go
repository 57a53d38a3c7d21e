package commands

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/labstack/internal/commands/doctor"
	"github.com/hay-kot/labstack/internal/labstack"
	"github.com/hay-kot/labstack/internal/printer"
)

type DoctorCmd struct {
	flags  *Flags
	format string
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your labstack setup",
		UsageText:   "labstack doctor [options]",
		Description: "Checks the configuration, backend reachability and the programs hook commands rely on.",
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

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	checks := []doctor.Check{
		doctor.NewConfigCheck(cfg, cmd.flags.ConfigPath),
	}
	if cfg != nil {
		backend := labstack.NewBackend(cfg.Backend, log.Logger)
		checks = append(checks,
			doctor.NewBackendCheck(backend, cfg.Backend.URL, cfg.Backend.RequestTimeout),
			doctor.NewCommandsCheck(cfg.Commands),
		)
	}

	results := doctor.RunAll(ctx, checks)

	if cmd.format == "json" {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(ctx, results)
}

type summaryJSON struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

type doctorReport struct {
	Healthy bool            `json:"healthy"`
	Summary summaryJSON     `json:"summary"`
	Checks  []doctor.Result `json:"checks"`
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	passed, warned, failed := doctor.Summary(results)

	out := doctorReport{
		Healthy: failed == 0,
		Summary: summaryJSON{Passed: passed, Warned: warned, Failed: failed},
		Checks:  results,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(ctx context.Context, results []doctor.Result) error {
	p := printer.Ctx(ctx)

	for _, result := range results {
		p.Section(result.Name)

		for _, item := range result.Items {
			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, item.Detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, item.Detail)
			case doctor.StatusFail:
				p.FailItem(item.Label, item.Detail)
			}
		}

		p.Printf("")
	}

	passed, warned, failed := doctor.Summary(results)
	p.Printf("Summary: %d passed, %d warnings, %d failed", passed, warned, failed)

	if failed > 0 {
		return cli.Exit("", 1)
	}

	return nil
}
