package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/labstack/internal/commands"
	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/labstack"
	"github.com/hay-kot/labstack/internal/printer"
	"github.com/hay-kot/labstack/pkg/executil"
	"github.com/hay-kot/labstack/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func main() {
	if err := setupLogger("info", "", nil); err != nil {
		panic(err)
	}

	var (
		p     = printer.New(os.Stderr)
		ctx   = printer.NewContext(context.Background(), p)
		flags = &commands.Flags{}
	)

	var deferredLogs *utils.DeferredWriter

	app := &cli.Command{
		Name:      "labstack",
		Usage:     "Launch and track short-lived sandbox labs",
		UsageText: "labstack [global options] command [command options]",
		Description: `labstack asks a provisioning backend for a sandboxed lab, waits for it to
come up, and counts down its lifetime until it expires or you terminate it.

Run 'labstack launch' to pick a lab and follow it in an interactive view.
Run 'labstack dev-server' for a local backend that provisions nothing.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("LABSTACK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (optional)",
				Sources:     cli.EnvVars("LABSTACK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LABSTACK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "api-url",
				Usage:       "provisioning backend base URL (overrides backend.url)",
				Sources:     cli.EnvVars("LABSTACK_API_URL"),
				Destination: &flags.APIURL,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// The interactive view owns the terminal, so logs are held until it exits
			var deferred io.Writer
			if commands.Interactive(c.Args().Slice()) {
				deferredLogs = &utils.DeferredWriter{}
				deferred = deferredLogs
			}

			if err := setupLogger(flags.LogLevel, flags.LogFile, deferred); err != nil {
				return ctx, err
			}

			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.APIURL != "" {
				cfg.Backend.URL = flags.APIURL
				if err := cfg.Validate(); err != nil {
					return ctx, fmt.Errorf("invalid --api-url: %w", err)
				}
			}
			flags.Config = cfg

			var (
				logger  = log.With().Str("component", "labstack").Logger()
				backend = labstack.NewBackend(cfg.Backend, log.Logger)
				exec    = &executil.RealExecutor{}
			)

			flags.Service = labstack.New(cfg, backend, exec, logger, os.Stdout, os.Stderr)
			return ctx, nil
		},
	}

	app = commands.NewLaunchCmd(flags).Register(app)
	app = commands.NewStatusCmd(flags).Register(app)
	app = commands.NewTerminateCmd(flags).Register(app)
	app = commands.NewKindsCmd(flags).Register(app)
	app = commands.NewCheatsheetCmd(flags).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)
	app = commands.NewDoctorCmd(flags).Register(app)
	app = commands.NewDevServerCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		printer.Ctx(ctx).FatalError(err)
		exitCode = 1
	}

	// Flush deferred logs to console after the interactive view exits
	if deferredLogs != nil {
		if err := deferredLogs.Flush(zerolog.ConsoleWriter{Out: os.Stderr}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}

	os.Exit(exitCode)
}

func setupLogger(level string, logFile string, deferred io.Writer) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		if deferred != nil {
			output = io.MultiWriter(file, deferred)
		} else {
			output = io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, file)
		}
	} else if deferred != nil {
		output = deferred
	}

	log.Logger = log.Output(output).Level(parsedLevel)

	return nil
}
