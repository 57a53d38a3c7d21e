// Package lifecycle drives one lab session from launch to expiry or
// termination. A Machine owns the session and processes intents, status
// polls and countdown ticks strictly in order on a single goroutine.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"

	"github.com/hay-kot/labstack/internal/core/lab"
)

// Options configures a Machine.
type Options struct {
	// Clock supplies tickers. Defaults to the real clock.
	Clock clock.WithTicker
	// PollInterval is the delay between status queries. Defaults to 5s.
	PollInterval time.Duration
	// MaxFailures is the number of consecutive failed queries that moves the
	// session to error. Defaults to 3.
	MaxFailures int
	// RequestTimeout bounds create, status and extend calls. Zero means none.
	RequestTimeout time.Duration
	// TerminateTimeout bounds terminate calls. Defaults to 10s.
	TerminateTimeout time.Duration
	// ConfirmExtend sends extensions to the backend when it implements
	// lab.Extender. Otherwise extensions are local only and flagged.
	ConfirmExtend bool
	// MaxExtendMinutes caps a single extension. Defaults to lab.MaxMinutes.
	MaxExtendMinutes int
	Logger           zerolog.Logger
	// OnTransition is called on the loop goroutine after each transition.
	// It must not call back into the Machine.
	OnTransition func(Transition)
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 3
	}
	if o.TerminateTimeout <= 0 {
		o.TerminateTimeout = 10 * time.Second
	}
	if o.MaxExtendMinutes <= 0 || o.MaxExtendMinutes > lab.MaxMinutes {
		o.MaxExtendMinutes = lab.MaxMinutes
	}
}

// Machine is the session state machine. Its exported methods are safe for
// concurrent use.
type Machine struct {
	backend lab.Backend
	opts    Options
	log     zerolog.Logger

	scope     *Scope
	poller    *StatusPoller
	countdown *CountdownTimer
	term      *TerminationCoordinator

	events    chan event
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	session        lab.Session
	createGen      uint64
	submitting     bool
	notice         string
	localExtension bool
	pendingExtends int

	mu      sync.RWMutex
	snap    Snapshot
	updates chan Snapshot
}

// New starts a Machine in the created state. Close releases it.
func New(ctx context.Context, backend lab.Backend, opts Options) *Machine {
	opts.applyDefaults()

	log := opts.Logger.With().Str("component", "lifecycle").Logger()
	scope := NewScope(ctx)

	m := &Machine{
		backend: backend,
		opts:    opts,
		log:     log,
		scope:   scope,
		poller: &StatusPoller{
			scope:       scope,
			backend:     backend,
			clock:       opts.Clock,
			interval:    opts.PollInterval,
			maxFailures: opts.MaxFailures,
			timeout:     opts.RequestTimeout,
			log:         log.With().Str("component", "poller").Logger(),
		},
		countdown: NewCountdownTimer(scope, opts.Clock),
		term:      NewTerminationCoordinator(scope, backend, opts.TerminateTimeout, log.With().Str("component", "terminator").Logger()),
		events:    make(chan event, 16),
		quit:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		session:   lab.New(),
		updates:   make(chan Snapshot, 1),
	}

	m.publish()
	go m.loop()
	return m
}

// Snapshot returns the latest view of the session.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Updates delivers the latest snapshot after each processed event. Slow
// readers only see the most recent one. Closed when the Machine is closed.
func (m *Machine) Updates() <-chan Snapshot {
	return m.updates
}

// Launch requests a new lab. Only argument errors and ErrClosed are returned;
// launch failures are reported through the snapshot.
func (m *Machine) Launch(kind lab.Kind, ttlMinutes int) error {
	if _, err := lab.ParseKind(string(kind)); err != nil {
		return err
	}
	if ttlMinutes < 1 || ttlMinutes > lab.MaxMinutes {
		return fmt.Errorf("%w: %d minutes", lab.ErrInvalidTTL, ttlMinutes)
	}
	done := make(chan struct{})
	return m.do(launchIntent{kind: kind, ttl: ttlMinutes, done: done}, done)
}

// Retry resumes polling after an error, or resubmits a rejected launch.
func (m *Machine) Retry() error {
	done := make(chan struct{})
	return m.do(retryIntent{done: done}, done)
}

// Extend adds minutes to an active session's remaining time.
func (m *Machine) Extend(minutes int) error {
	if minutes < 1 || minutes > m.opts.MaxExtendMinutes {
		return fmt.Errorf("%w: extend by %d minutes (must be 1-%d)", lab.ErrInvalidTTL, minutes, m.opts.MaxExtendMinutes)
	}
	done := make(chan struct{})
	return m.do(extendIntent{minutes: minutes, done: done}, done)
}

// Terminate ends the session locally and asks the backend to destroy the lab.
func (m *Machine) Terminate() error {
	done := make(chan struct{})
	return m.do(terminateIntent{done: done}, done)
}

// Reset abandons an errored session or clears a finished one.
func (m *Machine) Reset() error {
	done := make(chan struct{})
	return m.do(resetIntent{done: done}, done)
}

// Close stops polling and the countdown, waits for in-flight terminate calls
// and releases the session. Safe to call more than once.
func (m *Machine) Close() {
	m.closeOnce.Do(func() { close(m.quit) })
	<-m.loopDone
	m.scope.Close()
}

func (m *Machine) do(ev event, done chan struct{}) error {
	select {
	case <-m.quit:
		return lab.ErrClosed
	default:
	}

	select {
	case m.events <- ev:
	case <-m.quit:
		return lab.ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-m.loopDone:
		return lab.ErrClosed
	}
}

// emit delivers a task result to the loop. It gives up when the task is
// cancelled or the loop has exited.
func (m *Machine) emit(ctx context.Context, ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-m.loopDone:
		return false
	}
}

func (m *Machine) loop() {
	defer close(m.loopDone)
	defer close(m.updates)

	for {
		select {
		case <-m.quit:
			m.poller.Stop()
			m.countdown.Stop()
			m.log.Debug().Str("lab_id", m.session.ID).Msg("machine closed")
			return
		case ev := <-m.events:
			done := m.handle(ev)
			m.publish()
			if done != nil {
				close(done)
			}
		}
	}
}

// handle applies one event. For intents it returns the done channel, which
// the loop closes only after the resulting snapshot is published.
func (m *Machine) handle(ev event) chan struct{} {
	switch ev := ev.(type) {
	case launchIntent:
		m.onLaunch(ev.kind, ev.ttl)
		return ev.done
	case retryIntent:
		m.onRetry()
		return ev.done
	case extendIntent:
		m.onExtend(ev.minutes)
		return ev.done
	case terminateIntent:
		m.onTerminate()
		return ev.done
	case resetIntent:
		m.onReset()
		return ev.done
	case createResult:
		m.onCreated(ev)
	case pollResult:
		m.onPoll(ev)
	case tickEvent:
		m.onTick(ev)
	case terminateResult:
		m.onTerminated(ev)
	case extendResult:
		m.onExtended(ev)
	}
	return nil
}

func (m *Machine) onLaunch(kind lab.Kind, ttl int) {
	from := m.session.State
	switch from {
	case lab.StateCreated:
		if m.submitting {
			m.ignored("launch")
			return
		}
	case lab.StateError, lab.StateExpired, lab.StateTerminated:
	default:
		m.ignored("launch")
		return
	}

	m.newSession()
	m.session.Kind = kind
	m.session.TTLMinutes = ttl
	if from != lab.StateCreated {
		m.notify(from, lab.StateCreated, "launch")
	}
	m.submit()
}

func (m *Machine) onRetry() {
	switch {
	case m.session.State == lab.StateError && m.session.ID != "":
		m.transition(lab.StateLaunching, "retry")
		m.startPolling()
	case m.session.State == lab.StateCreated && !m.submitting && m.session.Failure == lab.FailureCreation:
		m.transition(lab.StateCreated, "retry")
		m.submit()
	default:
		m.ignored("retry")
	}
}

func (m *Machine) onExtend(minutes int) {
	if m.session.State != lab.StateActive {
		m.ignored("extend")
		return
	}

	m.countdown.Extend(minutes * 60)
	m.session.RemainingSeconds = m.countdown.Remaining()
	m.transition(lab.StateActive, "extend")

	ext, ok := m.backend.(lab.Extender)
	if !ok || !m.opts.ConfirmExtend {
		m.localExtension = true
		return
	}

	id := m.session.ID
	m.pendingExtends++
	m.scope.Go(func(ctx context.Context) {
		callCtx, cancel := m.callContext(ctx)
		defer cancel()
		err := ext.ExtendLab(callCtx, id, minutes)
		m.emit(ctx, extendResult{labID: id, minutes: minutes, err: err})
	})
}

func (m *Machine) onTerminate() {
	switch m.session.State {
	case lab.StateLaunching, lab.StateActive, lab.StateError:
	case lab.StateCreated:
		if m.submitting {
			// The late create result is cleaned up in onCreated.
			m.submitting = false
			m.createGen++
			m.transition(lab.StateCreated, "launch_abandoned")
			return
		}
		m.ignored("terminate")
		return
	default:
		m.ignored("terminate")
		return
	}

	m.poller.Stop()
	m.countdown.Stop()

	id := m.session.ID
	m.transition(lab.StateTerminated, "terminate")
	m.requestTerminate(id)
}

func (m *Machine) onReset() {
	from := m.session.State
	switch from {
	case lab.StateError:
		m.newSession()
		m.notify(from, lab.StateCreated, "abandon")
	case lab.StateExpired, lab.StateTerminated:
		m.newSession()
		m.notify(from, lab.StateCreated, "new_session")
	case lab.StateCreated:
		if !m.submitting {
			m.newSession()
		}
	default:
		m.ignored("reset")
	}
}

func (m *Machine) onCreated(ev createResult) {
	if ev.gen != m.createGen || !m.submitting {
		m.stale("create", ev.id)
		if ev.err == nil && ev.id != "" {
			m.log.Info().Str("lab_id", ev.id).Msg("terminating lab from abandoned launch")
			m.requestTerminate(ev.id)
		}
		return
	}

	m.submitting = false
	if ev.err != nil {
		err := ev.err
		if !errors.Is(err, lab.ErrCreation) {
			err = fmt.Errorf("%w: %w", lab.ErrCreation, err)
		}
		m.session.SetError(err)
		m.log.Warn().Err(err).Str("kind", string(m.session.Kind)).Msg("launch rejected")
		m.transition(lab.StateCreated, "create_failed")
		return
	}

	m.session.ID = ev.id
	m.transition(lab.StateLaunching, "created")
	m.startPolling()
}

func (m *Machine) onPoll(res pollResult) {
	if m.session.State != lab.StateLaunching || !m.poller.Accept(res) {
		m.stale("poll", res.labID)
		return
	}

	switch {
	case res.err != nil:
		err := res.err
		if !errors.Is(err, lab.ErrConnectivity) {
			err = fmt.Errorf("%w: %w", lab.ErrConnectivity, err)
		}
		m.session.SetError(err)
		if res.fatal {
			m.transition(lab.StateError, "poll_failed")
		} else {
			m.transition(lab.StateLaunching, "poll_failed")
		}
	case res.report.Status == lab.StatusError:
		msg := res.report.Message
		if msg == "" {
			msg = "status error"
		}
		m.session.SetError(fmt.Errorf("%w: %s", lab.ErrBackendReported, msg))
		m.transition(lab.StateError, "poll_error")
	case res.report.Settled():
		m.session.ClearError()
		if m.session.AccessURL == "" {
			m.session.AccessURL = res.report.AccessURL
		}
		m.session.RemainingSeconds = m.session.TTLSeconds()
		m.countdown.Start(m.session.RemainingSeconds, func(ctx context.Context, gen uint64) bool {
			return m.emit(ctx, tickEvent{gen: gen})
		})
		m.transition(lab.StateActive, "poll_ready")
	default:
		m.session.ClearError()
		m.transition(lab.StateLaunching, "poll_pending")
	}
}

func (m *Machine) onTick(ev tickEvent) {
	if m.session.State != lab.StateActive {
		m.stale("tick", m.session.ID)
		return
	}

	remaining, expired, ok := m.countdown.Tick(ev.gen)
	if !ok {
		m.stale("tick", m.session.ID)
		return
	}

	m.session.RemainingSeconds = remaining
	if expired {
		m.transition(lab.StateExpired, "expired")
	}
}

func (m *Machine) onTerminated(ev terminateResult) {
	if ev.err == nil || ev.labID != m.session.ID {
		return
	}
	m.notice = fmt.Sprintf("The lab service did not confirm termination (%v). The lab will be reclaimed when its time runs out.", ev.err)
}

func (m *Machine) onExtended(ev extendResult) {
	if ev.labID != m.session.ID {
		m.stale("extend", ev.labID)
		return
	}

	m.pendingExtends--
	if ev.err != nil {
		m.localExtension = true
		m.log.Warn().Err(ev.err).Str("lab_id", ev.labID).Int("minutes", ev.minutes).Msg("extension not confirmed")
		if !errors.Is(ev.err, lab.ErrExtendUnsupported) {
			m.notice = fmt.Sprintf("The lab service did not confirm the extension (%v). The lab may stop before the timer ends.", ev.err)
		}
	}
}

func (m *Machine) submit() {
	m.createGen++
	gen := m.createGen
	kind, ttl := m.session.Kind, m.session.TTLMinutes

	m.submitting = true
	m.session.ClearError()

	m.log.Info().Str("kind", string(kind)).Int("ttl", ttl).Msg("launching lab")
	m.scope.Go(func(ctx context.Context) {
		callCtx, cancel := m.callContext(ctx)
		defer cancel()
		id, err := m.backend.CreateLab(callCtx, kind, ttl)
		if ctx.Err() != nil {
			return
		}
		m.emit(ctx, createResult{gen: gen, id: id, err: err})
	})
}

func (m *Machine) startPolling() {
	m.poller.Start(m.session.ID, func(ctx context.Context, res pollResult) bool {
		return m.emit(ctx, res)
	})
}

func (m *Machine) requestTerminate(id string) {
	m.term.Request(id, func(ctx context.Context, err error) {
		m.emit(ctx, terminateResult{labID: id, err: err})
	})
}

// newSession stops all session tasks and replaces the session. Results from
// the previous session are stale from here on.
func (m *Machine) newSession() {
	m.poller.Stop()
	m.countdown.Stop()
	m.createGen++
	m.submitting = false
	m.session = lab.New()
	m.notice = ""
	m.localExtension = false
	m.pendingExtends = 0
}

// callContext derives a request context bounded by RequestTimeout.
func (m *Machine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opts.RequestTimeout)
}

func (m *Machine) transition(to lab.State, name string) {
	from := m.session.State
	m.session.State = to
	m.notify(from, to, name)
}

func (m *Machine) notify(from, to lab.State, name string) {
	evt := m.log.Debug()
	if from != to {
		evt = m.log.Info()
	}
	evt.Str("lab_id", m.session.ID).Str("from", string(from)).Str("to", string(to)).Str("event", name).Msg("transition")

	if m.opts.OnTransition != nil {
		m.opts.OnTransition(Transition{
			From:       from,
			To:         to,
			Event:      name,
			LabID:      m.session.ID,
			Kind:       m.session.Kind,
			TTLMinutes: m.session.TTLMinutes,
			AccessURL:  m.session.AccessURL,
		})
	}
}

func (m *Machine) ignored(name string) {
	m.log.Debug().Str("state", string(m.session.State)).Str("event", name).Msg("event ignored")
}

func (m *Machine) stale(name, id string) {
	m.log.Debug().Err(lab.ErrStaleResult).Str("event", name).Str("lab_id", id).Str("current", m.session.ID).Msg("result discarded")
}

func (m *Machine) publish() {
	s := m.session
	snap := Snapshot{
		LabID:                s.ID,
		Kind:                 s.Kind,
		TTLMinutes:           s.TTLMinutes,
		State:                s.State,
		RemainingSeconds:     s.RemainingSeconds,
		Remaining:            lab.FormatRemaining(s.RemainingSeconds),
		AccessURL:            s.AccessURL,
		Live:                 s.Live(),
		LastError:            s.LastError,
		Failure:              s.Failure,
		Notice:               m.notice,
		Submitting:           m.submitting,
		ExtensionUnconfirmed: m.localExtension || m.pendingExtends > 0,
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	select {
	case <-m.updates:
	default:
	}
	select {
	case m.updates <- snap:
	default:
	}
}
