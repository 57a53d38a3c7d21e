package labstack

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/devserver"
	"github.com/hay-kot/labstack/internal/lifecycle"
	"github.com/hay-kot/labstack/pkg/executil"
)

func intPtr(i int) *int { return &i }

func newTestService(t *testing.T, mutate func(*config.Config)) (*Service, *executil.RecordingExecutor) {
	t.Helper()

	srv := devserver.New(devserver.Options{ReadyAfter: 0}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = ts.URL
	if mutate != nil {
		mutate(&cfg)
	}

	exec := &executil.RecordingExecutor{}
	log := zerolog.Nop()
	return New(&cfg, NewBackend(cfg.Backend, log), exec, log, io.Discard, io.Discard), exec
}

func TestResolveLaunch(t *testing.T) {
	svc, _ := newTestService(t, func(c *config.Config) {
		c.Rules = []config.Rule{{Pattern: "sql-*", TTL: intPtr(15)}}
	})

	tests := []struct {
		name     string
		kind     string
		ttl      int
		wantKind lab.Kind
		wantTTL  int
		wantErr  error
	}{
		{name: "defaults", wantKind: lab.KindPython, wantTTL: 30},
		{name: "rule ttl", kind: "sql-lab", wantKind: lab.KindSQL, wantTTL: 15},
		{name: "explicit ttl", kind: "sql-lab", ttl: 90, wantKind: lab.KindSQL, wantTTL: 90},
		{name: "unknown kind", kind: "cobol-lab", wantErr: lab.ErrInvalidKind},
		{name: "ttl too long", kind: "python-lab", ttl: 500, wantErr: lab.ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ttl, err := svc.ResolveLaunch(tt.kind, tt.ttl)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantTTL, ttl)
		})
	}
}

func TestNewMachine_RunsOnReadyHooks(t *testing.T) {
	svc, exec := newTestService(t, func(c *config.Config) {
		c.Commands.OnReady = []string{"xdg-open {{ .URL | shq }}"}
	})

	clk := testingclock.NewFakeClock(time.Now())
	seen := make(chan lifecycle.Transition, 8)
	m := svc.NewMachine(context.Background(), MachineOptions{
		Clock:        clk,
		OnTransition: func(tr lifecycle.Transition) { seen <- tr },
	})
	defer m.Close()

	require.NoError(t, m.Launch(lab.KindPython, 15))
	require.Eventually(t, func() bool { return m.Snapshot().State == lab.StateLaunching }, 2*time.Second, time.Millisecond)

	clk.Step(svc.Config().Poll.Interval)
	require.Eventually(t, func() bool { return m.Snapshot().State == lab.StateActive }, 2*time.Second, time.Millisecond)

	svc.Wait()
	cmds := exec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "sh", cmds[0].Cmd)
	assert.Equal(t, []string{"-c", "xdg-open 'http://127.0.0.1:8080'"}, cmds[0].Args)
	assert.NotEmpty(t, seen)
}

func TestCopy(t *testing.T) {
	svc, exec := newTestService(t, func(c *config.Config) {
		c.Commands.OnCopy = []string{"printf %s {{ .URL | shq }} | pbcopy"}
	})

	err := svc.Copy(context.Background(), lifecycle.Snapshot{LabID: "abc", State: lab.StateLaunching})
	assert.Error(t, err)

	live := lifecycle.Snapshot{LabID: "abc", State: lab.StateActive, AccessURL: "https://x/y", Live: true}
	require.NoError(t, svc.Copy(context.Background(), live))

	cmds := exec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"-c", "printf %s 'https://x/y' | pbcopy"}, cmds[0].Args)
}

func TestStatusAndTerminate(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Status(ctx, "missing")
	assert.ErrorIs(t, err, lab.ErrConnectivity)

	assert.Error(t, svc.Terminate(ctx, "missing"))
}

func TestTerminate_OutlivesRequestTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"terminated"}`))
	}))
	t.Cleanup(ts.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = ts.URL
	cfg.Backend.RequestTimeout = 20 * time.Millisecond
	cfg.Backend.TerminateTimeout = 2 * time.Second
	cfg.Backend.RateLimit = 0

	log := zerolog.Nop()
	svc := New(&cfg, NewBackend(cfg.Backend, log), &executil.RecordingExecutor{}, log, io.Discard, io.Discard)

	require.NoError(t, svc.Terminate(context.Background(), "lab-a"))

	_, err := svc.Status(context.Background(), "lab-a")
	assert.ErrorIs(t, err, lab.ErrConnectivity, "status keeps the shorter request timeout")
}

func TestHooks_QuietFailureCarriesOutput(t *testing.T) {
	svc, exec := newTestService(t, func(c *config.Config) {
		c.Commands.OnCopy = []string{"pbcopy"}
	})
	exec.Output = []byte("copying\npbcopy: command not found\n")
	exec.Errors = map[string]error{"sh": errors.New("exit status 127")}

	live := lifecycle.Snapshot{LabID: "abc", State: lab.StateActive, AccessURL: "https://x/y", Live: true}
	err := svc.Copy(context.Background(), live)
	require.Error(t, err)
	assert.ErrorContains(t, err, "exit status 127: pbcopy: command not found")
}

func TestHooks_StreamWithHeader(t *testing.T) {
	svc, exec := newTestService(t, func(c *config.Config) {
		c.Commands.OnReady = []string{"echo {{ .ID }}", "xdg-open {{ .URL | shq }}"}
	})
	exec.Output = []byte("ok\n")

	var stdout bytes.Buffer
	svc.SetHookOutput(&stdout, io.Discard)

	live := lifecycle.Snapshot{LabID: "abc", State: lab.StateActive, AccessURL: "https://x/y", Live: true}
	require.NoError(t, svc.Open(context.Background(), live))

	out := stdout.String()
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "echo abc")
	assert.Contains(t, out, "[2/2]")
	assert.Len(t, exec.Commands(), 2)
}
