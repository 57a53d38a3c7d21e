package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"

	"github.com/hay-kot/labstack/internal/core/lab"
)

// pollResult is one status observation delivered by the poller.
type pollResult struct {
	gen      uint64
	labID    string
	report   lab.StatusReport
	err      error
	failures int  // consecutive failures including this one
	fatal    bool // failure threshold reached; the poller has stopped
}

// StatusPoller queries the backend for one lab at a fixed interval until it is
// stopped, the status settles, or too many consecutive queries fail.
//
// Start, Stop and Accept must be called from the machine's loop goroutine.
type StatusPoller struct {
	scope       *Scope
	backend     lab.Backend
	clock       clock.WithTicker
	interval    time.Duration
	maxFailures int
	timeout     time.Duration
	log         zerolog.Logger

	task  *Task
	gen   uint64
	labID string
}

// Start begins polling id, stopping any poll already running. The ticker is
// armed before Start returns; the first query happens one interval later.
func (p *StatusPoller) Start(id string, emit func(context.Context, pollResult) bool) {
	p.Stop()

	gen := p.gen
	ticker := p.clock.NewTicker(p.interval)
	p.labID = id
	p.task = p.scope.Go(func(ctx context.Context) {
		p.run(ctx, id, gen, ticker, emit)
	})

	p.log.Debug().Str("lab_id", id).Dur("interval", p.interval).Msg("polling started")
}

// Stop cancels the running poll and waits for it to exit. Results already
// queued from it are rejected by Accept afterwards.
func (p *StatusPoller) Stop() {
	if p.task == nil {
		return
	}
	p.task.Stop()
	p.task = nil
	p.gen++
	p.log.Debug().Str("lab_id", p.labID).Msg("polling stopped")
}

// Running reports whether a poll loop is live.
func (p *StatusPoller) Running() bool {
	return p.task != nil
}

// Accept reports whether res came from the live poll loop. Results that end
// the loop release it.
func (p *StatusPoller) Accept(res pollResult) bool {
	if p.task == nil || res.gen != p.gen || res.labID != p.labID {
		return false
	}
	if res.fatal || (res.err == nil && res.report.Settled()) {
		p.Stop()
	}
	return true
}

func (p *StatusPoller) run(ctx context.Context, id string, gen uint64, ticker clock.Ticker, emit func(context.Context, pollResult) bool) {
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		report, err := p.query(ctx, id)
		if ctx.Err() != nil {
			return
		}

		res := pollResult{gen: gen, labID: id, report: report}
		if err != nil {
			failures++
			res.err = err
			res.failures = failures
			res.fatal = failures >= p.maxFailures
			p.log.Warn().Err(err).Str("lab_id", id).Int("failures", failures).Msg("status query failed")
		} else {
			failures = 0
		}

		if !emit(ctx, res) {
			return
		}
		if res.fatal || (err == nil && report.Settled()) {
			return
		}
	}
}

func (p *StatusPoller) query(ctx context.Context, id string) (lab.StatusReport, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.backend.LabStatus(ctx, id)
}
