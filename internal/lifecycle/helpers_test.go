package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/hay-kot/labstack/internal/core/lab"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

type statusReply struct {
	report lab.StatusReport
	err    error
}

func pending() statusReply { return statusReply{report: lab.StatusReport{Status: lab.StatusPending}} }

func ready(url string) statusReply {
	return statusReply{report: lab.StatusReport{Status: lab.StatusReady, AccessURL: url}}
}

func failed(err error) statusReply { return statusReply{err: err} }

// fakeBackend replays scripted responses. The last status reply repeats.
type fakeBackend struct {
	mu sync.Mutex

	createIDs  []string
	createErr  error
	createGate chan struct{} // when set, CreateLab waits for it to close

	statuses   []statusReply
	blockPolls bool // LabStatus waits for cancellation, then reports ready

	terminateErr   error
	blockTerminate bool // TerminateLab waits for its context to end

	creates    int
	polls      int
	terminated []string
}

func (f *fakeBackend) CreateLab(ctx context.Context, kind lab.Kind, ttl int) (string, error) {
	if f.createGate != nil {
		<-f.createGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	id := "lab-a"
	if len(f.createIDs) > 0 {
		id = f.createIDs[0]
		f.createIDs = f.createIDs[1:]
	}
	return id, nil
}

func (f *fakeBackend) LabStatus(ctx context.Context, id string) (lab.StatusReport, error) {
	f.mu.Lock()
	f.polls++
	block := f.blockPolls
	var reply statusReply
	switch {
	case len(f.statuses) == 0:
		reply = pending()
	case f.polls <= len(f.statuses):
		reply = f.statuses[f.polls-1]
	default:
		reply = f.statuses[len(f.statuses)-1]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return lab.StatusReport{Status: lab.StatusReady, AccessURL: "https://late/" + id}, nil
	}
	return reply.report, reply.err
}

func (f *fakeBackend) TerminateLab(ctx context.Context, id string) error {
	f.mu.Lock()
	f.terminated = append(f.terminated, id)
	block, err := f.blockTerminate, f.terminateErr
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeBackend) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeBackend) terminateCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terminated...)
}

func (f *fakeBackend) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

// extendingBackend adds server-side extension.
type extendingBackend struct {
	*fakeBackend
	extendErr error

	emu     sync.Mutex
	extends []int
}

func (e *extendingBackend) ExtendLab(ctx context.Context, id string, minutes int) error {
	e.emu.Lock()
	defer e.emu.Unlock()
	e.extends = append(e.extends, minutes)
	return e.extendErr
}

type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) record(tr Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) all() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

func (r *recorder) waitLen(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.all()) >= n }, waitFor, tick, "waiting for %d transitions", n)
}

func (r *recorder) countTo(state lab.State) int {
	n := 0
	for _, tr := range r.all() {
		if tr.To == state && tr.From != state {
			n++
		}
	}
	return n
}

type harness struct {
	m     *Machine
	clock *testingclock.FakeClock
	rec   *recorder
}

func newHarness(t *testing.T, backend lab.Backend, mutate ...func(*Options)) *harness {
	t.Helper()

	clk := testingclock.NewFakeClock(time.Now())
	rec := &recorder{}
	opts := Options{
		Clock:            clk,
		PollInterval:     5 * time.Second,
		MaxFailures:      3,
		TerminateTimeout: time.Second,
		Logger:           zerolog.Nop(),
		OnTransition:     rec.record,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	m := New(context.Background(), backend, opts)
	t.Cleanup(m.Close)
	return &harness{m: m, clock: clk, rec: rec}
}

func (h *harness) waitState(t *testing.T, state lab.State) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return h.m.Snapshot().State == state }, waitFor, tick,
		"waiting for %s, have %s", state, h.m.Snapshot().State)
	return h.m.Snapshot()
}

// poll advances the clock one poll interval and waits for the resulting
// transition to be processed.
func (h *harness) poll(t *testing.T) {
	t.Helper()
	n := len(h.rec.all())
	h.clock.Step(5 * time.Second)
	h.rec.waitLen(t, n+1)
}

// launchActive drives a fresh machine to active with the given TTL.
func (h *harness) launchActive(t *testing.T, ttl int) Snapshot {
	t.Helper()
	require.NoError(t, h.m.Launch(lab.KindPython, ttl))
	h.waitState(t, lab.StateLaunching)
	h.poll(t)
	return h.waitState(t, lab.StateActive)
}

// second advances the countdown one tick and waits until it is applied.
func (h *harness) second(t *testing.T, want int) {
	t.Helper()
	h.clock.Step(time.Second)
	require.Eventually(t, func() bool { return h.m.Snapshot().RemainingSeconds == want }, waitFor, tick,
		"waiting for remaining=%d, have %d", want, h.m.Snapshot().RemainingSeconds)
}
