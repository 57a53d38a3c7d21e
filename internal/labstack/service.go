// Package labstack wires configuration, the provisioning backend, command
// hooks and the session state machine together for the CLI and TUI.
package labstack

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/labapi"
	"github.com/hay-kot/labstack/internal/lifecycle"
	"github.com/hay-kot/labstack/pkg/executil"
)

// Hook names.
const (
	HookOnReady = "on_ready"
	HookOnCopy  = "on_copy"
)

// Service orchestrates labstack operations.
type Service struct {
	config   *config.Config
	backend  lab.Backend
	log      zerolog.Logger
	hooks    *HookRunner
	hookWait sync.WaitGroup
}

// New creates a new Service.
func New(
	cfg *config.Config,
	backend lab.Backend,
	exec executil.Executor,
	log zerolog.Logger,
	stdout, stderr io.Writer,
) *Service {
	return &Service{
		config:  cfg,
		backend: backend,
		log:     log,
		hooks:   NewHookRunner(log.With().Str("component", "hooks").Logger(), exec, stdout, stderr),
	}
}

// NewBackend builds the HTTP backend client from configuration.
func NewBackend(cfg config.BackendConfig, log zerolog.Logger) *labapi.Client {
	return labapi.New(labapi.Options{
		BaseURL:        cfg.URL,
		RateLimit:      cfg.RateLimit,
		ExtendEndpoint: cfg.ExtendEndpoint,
	}, log.With().Str("component", "labapi").Logger())
}

// SetHookOutput redirects hook command output. Call it before starting a
// machine; full screen views pass io.Discard.
func (s *Service) SetHookOutput(stdout, stderr io.Writer) {
	s.hooks = NewHookRunner(s.log.With().Str("component", "hooks").Logger(), s.hooks.executor, stdout, stderr)
}

// Config returns the loaded configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// MachineOptions tweaks machine construction.
type MachineOptions struct {
	// Clock overrides the real clock, for tests.
	Clock clock.WithTicker
	// OnTransition is called after the service's own observers.
	OnTransition func(lifecycle.Transition)
}

// NewMachine starts a session state machine configured from the service.
// Entering active runs the on_ready hooks in the background; Wait blocks
// until they finish.
func (s *Service) NewMachine(ctx context.Context, opts MachineOptions) *lifecycle.Machine {
	observer := func(tr lifecycle.Transition) {
		if tr.To == lab.StateActive && tr.From != lab.StateActive {
			s.runHookAsync(ctx, HookOnReady, s.config.Commands.OnReady, tr)
		}
		if opts.OnTransition != nil {
			opts.OnTransition(tr)
		}
	}

	return lifecycle.New(ctx, s.backend, lifecycle.Options{
		Clock:            opts.Clock,
		PollInterval:     s.config.Poll.Interval,
		MaxFailures:      s.config.Poll.MaxFailures,
		RequestTimeout:   s.config.Backend.RequestTimeout,
		TerminateTimeout: s.config.Backend.TerminateTimeout,
		ConfirmExtend:    s.config.Backend.ExtendEndpoint,
		MaxExtendMinutes: s.config.Lab.MaxTTL,
		Logger:           s.log,
		OnTransition:     observer,
	})
}

// Wait blocks until background hooks have finished.
func (s *Service) Wait() {
	s.hookWait.Wait()
}

// ResolveLaunch fills in defaults for a launch request. An empty kind uses
// the configured default; a zero ttl uses the kind's default.
func (s *Service) ResolveLaunch(kindArg string, ttl int) (lab.Kind, int, error) {
	if kindArg == "" {
		kindArg = s.config.Lab.DefaultKind
	}
	kind, err := lab.ParseKind(kindArg)
	if err != nil {
		return "", 0, err
	}

	if ttl == 0 {
		ttl = s.config.TTLFor(kind)
	}
	if err := s.config.ValidateTTL(ttl); err != nil {
		return "", 0, err
	}
	return kind, ttl, nil
}

// ExtendMinutes returns the minutes one extend adds for kind.
func (s *Service) ExtendMinutes(kind lab.Kind) int {
	return s.config.ExtendMinutesFor(kind)
}

// Open runs the on_ready hooks again for a live session.
func (s *Service) Open(ctx context.Context, snap lifecycle.Snapshot) error {
	if !snap.Live {
		return fmt.Errorf("lab %s is not live", snap.LabID)
	}
	if len(s.config.Commands.OnReady) == 0 {
		return fmt.Errorf("no commands.on_ready configured")
	}
	return s.hooks.Run(ctx, HookOnReady, s.config.Commands.OnReady, commandData(snap))
}

// Copy runs the on_copy hooks for a live session.
func (s *Service) Copy(ctx context.Context, snap lifecycle.Snapshot) error {
	if !snap.Live {
		return fmt.Errorf("lab %s is not live", snap.LabID)
	}
	if len(s.config.Commands.OnCopy) == 0 {
		return fmt.Errorf("no commands.on_copy configured")
	}
	return s.hooks.Run(ctx, HookOnCopy, s.config.Commands.OnCopy, commandData(snap))
}

func commandData(snap lifecycle.Snapshot) config.CommandData {
	return config.CommandData{
		ID:   snap.LabID,
		Kind: string(snap.Kind),
		URL:  snap.AccessURL,
		TTL:  snap.TTLMinutes,
	}
}

// Status queries the backend once for a lab's status.
func (s *Service) Status(ctx context.Context, id string) (lab.StatusReport, error) {
	if s.config.Backend.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Backend.RequestTimeout)
		defer cancel()
	}

	report, err := s.backend.LabStatus(ctx, id)
	if err != nil {
		return lab.StatusReport{}, fmt.Errorf("get status of %s: %w", id, err)
	}
	return report, nil
}

// Terminate asks the backend to destroy a lab outside of a watched session.
func (s *Service) Terminate(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Backend.TerminateTimeout)
	defer cancel()

	if err := s.backend.TerminateLab(ctx, id); err != nil {
		return fmt.Errorf("terminate %s: %w", id, err)
	}
	s.log.Info().Str("lab_id", id).Msg("lab terminated")
	return nil
}

func (s *Service) runHookAsync(ctx context.Context, name string, commands []string, tr lifecycle.Transition) {
	if len(commands) == 0 {
		return
	}

	data := config.CommandData{ID: tr.LabID, Kind: string(tr.Kind), URL: tr.AccessURL, TTL: tr.TTLMinutes}

	s.hookWait.Add(1)
	go func() {
		defer s.hookWait.Done()
		if err := s.hooks.Run(ctx, name, commands, data); err != nil {
			s.log.Warn().Err(err).Str("hook", name).Str("lab_id", tr.LabID).Msg("hook failed")
		}
	}()
}
