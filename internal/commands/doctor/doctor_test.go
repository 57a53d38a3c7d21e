package doctor

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/devserver"
	"github.com/hay-kot/labstack/internal/labapi"
)

type staticCheck struct {
	name  string
	items []CheckItem
	delay time.Duration
}

func (s staticCheck) Name() string { return s.name }

func (s staticCheck) Run(context.Context) Result {
	time.Sleep(s.delay)
	return Result{Name: s.name, Items: append([]CheckItem(nil), s.items...)}
}

func TestRunAll_KeepsOrderAndFillsStatus(t *testing.T) {
	results := RunAll(context.Background(), []Check{
		staticCheck{name: "slow", delay: 20 * time.Millisecond, items: []CheckItem{{Label: "a", Status: StatusFail}}},
		staticCheck{name: "fast", items: []CheckItem{{Label: "b", Status: StatusWarn}, {Label: "c"}}},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, "fast", results[1].Name)
	assert.Equal(t, "fail", results[0].Items[0].StatusStr)
	assert.Equal(t, "warn", results[1].Items[0].StatusStr)
	assert.Equal(t, "pass", results[1].Items[1].StatusStr)

	passed, warned, failed := Summary(results)
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, warned)
	assert.Equal(t, 1, failed)
}

func TestConfigCheck(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		result := NewConfigCheck(nil, "").Run(context.Background())
		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusFail, result.Items[0].Status)
	})

	t.Run("valid", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Backend.ExtendEndpoint = true

		result := NewConfigCheck(&cfg, "/tmp/config.yaml").Run(context.Background())
		assert.Equal(t, "Configuration", result.Name)
		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusPass, result.Items[0].Status)
	})

	t.Run("errors and warnings", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Commands.OnReady = []string{"xdg-open {{ .URL "}

		result := NewConfigCheck(&cfg, "").Run(context.Background())

		var labels []string
		for _, item := range result.Items {
			labels = append(labels, item.Label)
		}
		assert.Contains(t, labels, "commands.on_ready[0]")
		assert.Contains(t, labels, "Backend (backend.extend_endpoint)")
	})
}

func TestBackendCheck(t *testing.T) {
	srv := devserver.New(devserver.Options{}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())

	client := labapi.New(labapi.Options{BaseURL: ts.URL}, zerolog.Nop())
	result := NewBackendCheck(client, ts.URL, time.Second).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Contains(t, result.Items[0].Detail, ts.URL)

	ts.Close()
	result = NewBackendCheck(client, ts.URL, time.Second).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func TestCommandsCheck(t *testing.T) {
	check := NewCommandsCheck(config.Commands{
		OnReady: []string{"xdg-open {{ .URL | shq }}"},
		OnCopy:  []string{"printf %s {{ .URL | shq }} | pbcopy"},
	})
	check.lookPath = func(name string) (string, error) {
		if name == "pbcopy" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	result := check.Run(context.Background())
	require.Len(t, result.Items, 3)
	assert.Equal(t, CheckItem{Label: "commands.on_ready[0]", Status: StatusPass, Detail: "xdg-open"}, result.Items[0])
	assert.Equal(t, CheckItem{Label: "commands.on_copy[0]", Status: StatusPass, Detail: "printf"}, result.Items[1])
	assert.Equal(t, StatusWarn, result.Items[2].Status)
	assert.Equal(t, "pbcopy not found on PATH", result.Items[2].Detail)
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		cmd  string
		want []string
	}{
		{cmd: "xdg-open {{ .URL | shq }}", want: []string{"xdg-open"}},
		{cmd: "printf %s {{ .URL }} | wl-copy", want: []string{"printf", "wl-copy"}},
		{cmd: "BROWSER=firefox open {{ .URL }} && notify-send ready", want: []string{"open", "notify-send"}},
		{cmd: "{{ .Custom }} run", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, programs(tt.cmd))
		})
	}
}
