package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/printer"
)

type ConfigCmd struct {
	flags  *Flags
	format string
}

// NewConfigCmd creates the config command group.
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config commands to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	formatFlag := &cli.StringFlag{
		Name:        "format",
		Usage:       "output format (text, json)",
		Value:       "text",
		Destination: &cmd.format,
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "labstack config validate [options]",
				Description: "Validates the configuration file, checking command templates, rule patterns, TTL bounds and the backend URL.",
				Flags:       []cli.Flag{formatFlag},
				Action:      cmd.validate,
			},
			{
				Name:        "show",
				Usage:       "Print the effective configuration",
				UsageText:   "labstack config show",
				Description: "Prints the configuration after defaults and flag overrides are applied, as YAML.",
				Action:      cmd.show,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) show(_ context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(cmd.flags.Config); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func (cmd *ConfigCmd) validate(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	err := cmd.flags.Config.ValidateDeep()
	warnings := cmd.flags.Config.Warnings()

	if cmd.format == "json" {
		return writeValidationJSON(c, err, warnings)
	}
	return writeValidationText(printer.Ctx(ctx), cmd.flags.ConfigPath, err, warnings)
}

type validationReport struct {
	Valid    bool                       `json:"valid"`
	Errors   []validationError          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

type validationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func writeValidationJSON(c *cli.Command, validationErr error, warnings []config.ValidationWarning) error {
	report := validationReport{Valid: validationErr == nil, Warnings: warnings}
	for _, fe := range fieldErrors(validationErr) {
		report.Errors = append(report.Errors, validationError{Field: fe.Field, Message: fe.Err.Error()})
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

// fieldErrors flattens err into field errors; nested builders are expanded.
func fieldErrors(err error) criterio.FieldErrors {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return criterio.FieldErrors{{Err: err}}
	}

	var out criterio.FieldErrors
	for _, fe := range fieldErrs {
		var nested criterio.FieldErrors
		if fe.Field == "" && errors.As(fe.Err, &nested) {
			out = append(out, nested...)
			continue
		}
		out = append(out, fe)
	}
	return out
}

func writeValidationText(p *printer.Printer, path string, validationErr error, warnings []config.ValidationWarning) error {
	p.Infof("Checking %s", path)

	errs := fieldErrors(validationErr)
	if len(errs) > 0 {
		p.Section("Errors")
		for _, fe := range errs {
			if fe.Field != "" {
				p.Errorf("%s: %s", fe.Field, fe.Err)
			} else {
				p.Errorf("%s", fe.Err)
			}
		}
	}

	if len(warnings) > 0 {
		p.Section("Warnings")
		for _, w := range warnings {
			if w.Item != "" {
				p.Warnf("%s: %s", w.Item, w.Message)
			} else {
				p.Warnf("%s: %s", w.Category, w.Message)
			}
		}
	}

	if validationErr != nil {
		p.Errorf("%d error(s), %d warning(s)", len(errs), len(warnings))
		return cli.Exit("", 1)
	}

	p.Successf("Configuration is valid (%d warning(s))", len(warnings))
	return nil
}
