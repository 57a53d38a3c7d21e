package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/labstack/internal/core/lab"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 3, cfg.Poll.MaxFailures)
	assert.Equal(t, 30, cfg.Lab.DefaultTTL)
	assert.Equal(t, 30, cfg.Lab.ExtendMinutes)
	assert.Equal(t, []int{15, 30, 60, 90, 120}, cfg.Lab.TTLOptions)
}

func TestLoad_FileOverridesAndDefaultsFill(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: https://labs.example.com
  extend_endpoint: true
poll:
  interval: 2s
lab:
  default_kind: sql-lab
rules:
  - pattern: "python-*"
    ttl: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://labs.example.com", cfg.Backend.URL)
	assert.True(t, cfg.Backend.ExtendEndpoint)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 3, cfg.Poll.MaxFailures, "zero value replaced by default")
	assert.Equal(t, 10*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, "sql-lab", cfg.Lab.DefaultKind)
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
lab:
  default_kind: cobol-lab
  default_ttl: 500
`)

	_, err := Load(path)
	require.Error(t, err)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
}

func TestConfig_Rules(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	cfg := DefaultConfig()
	cfg.Rules = []Rule{
		{Pattern: "python-*", TTL: intPtr(60)},
		{Pattern: "*", ExtendMinutes: intPtr(15)},
	}

	tests := []struct {
		name       string
		kind       lab.Kind
		wantTTL    int
		wantExtend int
	}{
		{name: "python rule matches first", kind: lab.KindPython, wantTTL: 60, wantExtend: 30},
		{name: "python cli also matches", kind: lab.KindPythonCLI, wantTTL: 60, wantExtend: 30},
		{name: "falls through to catch-all", kind: lab.KindSQL, wantTTL: 30, wantExtend: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTTL, cfg.TTLFor(tt.kind))
			assert.Equal(t, tt.wantExtend, cfg.ExtendMinutesFor(tt.kind))
		})
	}
}

func TestConfig_ValidateTTL(t *testing.T) {
	cfg := DefaultConfig()

	assert.NoError(t, cfg.ValidateTTL(15))
	assert.NoError(t, cfg.ValidateTTL(120))
	assert.ErrorIs(t, cfg.ValidateTTL(0), lab.ErrInvalidTTL)
	assert.ErrorIs(t, cfg.ValidateTTL(121), lab.ErrInvalidTTL)
}

func TestConfig_ExtendBounds(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateExtend(120))
	assert.ErrorIs(t, cfg.ValidateExtend(0), lab.ErrInvalidTTL)
	assert.ErrorIs(t, cfg.ValidateExtend(121), lab.ErrInvalidTTL)

	cfg.Lab.ExtendMinutes = 1 << 40
	cfg.Rules = []Rule{{Pattern: "sql-*", ExtendMinutes: intPtr(5000)}}
	cfg.Lab.MaxTTL = lab.MaxMinutes + 1

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.Validate(), &fieldErrs)

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "lab.max_ttl")
	assert.Contains(t, fields, "lab.extend_minutes")
	assert.Contains(t, fields, "rules[0].extend_minutes")
}

func TestConfig_TTLChoices(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []int{15, 30, 60, 90, 120}, cfg.TTLChoices(30))
	assert.Equal(t, []int{15, 30, 45, 60, 90, 120}, cfg.TTLChoices(45))
}

func TestValidateDeep(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Commands.OnReady = []string{"xdg-open {{ .URL | shq }}"}
		assert.NoError(t, cfg.ValidateDeep())
	})

	t.Run("bad template and url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend.URL = "ftp://labs"
		cfg.Commands.OnReady = []string{"open {{ .Missing }}"}
		cfg.Commands.OnCopy = []string{"echo {{ .URL"}

		err := cfg.ValidateDeep()

		var fieldErrs criterio.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Len(t, fieldErrs, 3)
	})
}

func TestWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = []Rule{{Pattern: "sql-*"}}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "Rules", warnings[0].Category)
	assert.Equal(t, "backend.extend_endpoint", warnings[1].Item)

	cfg.Backend.ExtendEndpoint = true
	assert.Len(t, cfg.Warnings(), 1)
}
