package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/labstack/internal/devserver"
	"github.com/hay-kot/labstack/internal/printer"
)

type DevServerCmd struct {
	flags      *Flags
	addr       string
	readyAfter int
}

// NewDevServerCmd creates a new dev-server command
func NewDevServerCmd(flags *Flags) *DevServerCmd {
	return &DevServerCmd{flags: flags}
}

// Register adds the dev-server command to the application
func (cmd *DevServerCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "dev-server",
		Usage:     "Run an in-memory provisioning backend for local testing",
		UsageText: "labstack dev-server [options]",
		Description: `Serves POST /labs, GET /labs/{id}/status and POST /labs/{id}/terminate
from memory. Labs report pending for --ready-after status polls, then ready.
Nothing is actually provisioned.

Example:
  labstack dev-server --addr 127.0.0.1:8787
  labstack --api-url http://127.0.0.1:8787 launch sql-lab`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to dev_server.addr)",
				Destination: &cmd.addr,
			},
			&cli.IntFlag{
				Name:        "ready-after",
				Usage:       "status polls answered pending before ready (defaults to dev_server.ready_after)",
				Value:       -1,
				Destination: &cmd.readyAfter,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *DevServerCmd) run(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)
	cfg := cmd.flags.Config.DevServer

	addr := cmd.addr
	if addr == "" {
		addr = cfg.Addr
	}
	readyAfter := cmd.readyAfter
	if readyAfter < 0 {
		readyAfter = cfg.ReadyAfter
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := devserver.New(devserver.Options{ReadyAfter: readyAfter, Host: host}, log.Logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.Successf("Dev server listening on http://%s (ready after %d poll(s))", ln.Addr(), readyAfter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	p.Infof("Dev server stopped")
	return nil
}
