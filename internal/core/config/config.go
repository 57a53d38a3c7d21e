// Package config handles configuration loading and validation for labstack.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/labstack/internal/core/lab"
)

// Config holds the application configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Poll      PollConfig      `yaml:"poll"`
	Lab       LabConfig       `yaml:"lab"`
	Rules     []Rule          `yaml:"rules"`
	Commands  Commands        `yaml:"commands"`
	DevServer DevServerConfig `yaml:"dev_server"`
}

// BackendConfig configures the provisioning API client.
type BackendConfig struct {
	URL              string        `yaml:"url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	TerminateTimeout time.Duration `yaml:"terminate_timeout"`
	RateLimit        float64       `yaml:"rate_limit"` // requests per second
	ExtendEndpoint   bool          `yaml:"extend_endpoint"`
}

// PollConfig configures status polling while a lab is launching.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxFailures int           `yaml:"max_failures"`
}

// LabConfig holds launch defaults.
type LabConfig struct {
	DefaultKind   string `yaml:"default_kind"`
	DefaultTTL    int    `yaml:"default_ttl"`    // minutes
	MaxTTL        int    `yaml:"max_ttl"`        // minutes
	ExtendMinutes int    `yaml:"extend_minutes"` // minutes added per extend
	TTLOptions    []int  `yaml:"ttl_options"`    // choices offered by the launch form
}

// Rule overrides launch defaults for kinds matching Pattern.
type Rule struct {
	// Pattern is a glob matched against the kind (e.g. "python-*").
	Pattern       string `yaml:"pattern"`
	TTL           *int   `yaml:"ttl"`
	ExtendMinutes *int   `yaml:"extend_minutes"`
}

// Commands defines shell command templates run on lab events.
type Commands struct {
	// OnReady runs once when a lab becomes active.
	OnReady []string `yaml:"on_ready"`
	// OnCopy runs when the user asks to copy the access URL.
	OnCopy []string `yaml:"on_copy"`
}

// DevServerConfig configures the local stand-in backend.
type DevServerConfig struct {
	Addr       string `yaml:"addr"`
	ReadyAfter int    `yaml:"ready_after"` // status polls answered "pending" before "ready"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			URL:              "http://127.0.0.1:8787",
			RequestTimeout:   10 * time.Second,
			TerminateTimeout: 10 * time.Second,
			RateLimit:        5,
		},
		Poll: PollConfig{
			Interval:    5 * time.Second,
			MaxFailures: 3,
		},
		Lab: LabConfig{
			DefaultKind:   string(lab.KindPython),
			DefaultTTL:    30,
			MaxTTL:        120,
			ExtendMinutes: 30,
			TTLOptions:    []int{15, 30, 60, 90, 120},
		},
		DevServer: DevServerConfig{
			Addr:       "127.0.0.1:8787",
			ReadyAfter: 2,
		},
	}
}

// Load reads configuration from the given path.
// If configPath is empty or doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = defaults.Backend.RequestTimeout
	}
	if c.Backend.TerminateTimeout == 0 {
		c.Backend.TerminateTimeout = defaults.Backend.TerminateTimeout
	}
	if c.Backend.RateLimit == 0 {
		c.Backend.RateLimit = defaults.Backend.RateLimit
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = defaults.Poll.Interval
	}
	if c.Poll.MaxFailures == 0 {
		c.Poll.MaxFailures = defaults.Poll.MaxFailures
	}
	if c.Lab.DefaultKind == "" {
		c.Lab.DefaultKind = defaults.Lab.DefaultKind
	}
	if c.Lab.DefaultTTL == 0 {
		c.Lab.DefaultTTL = defaults.Lab.DefaultTTL
	}
	if c.Lab.MaxTTL == 0 {
		c.Lab.MaxTTL = defaults.Lab.MaxTTL
	}
	if c.Lab.ExtendMinutes == 0 {
		c.Lab.ExtendMinutes = defaults.Lab.ExtendMinutes
	}
	if len(c.Lab.TTLOptions) == 0 {
		c.Lab.TTLOptions = defaults.Lab.TTLOptions
	}
	if c.DevServer.Addr == "" {
		c.DevServer.Addr = defaults.DevServer.Addr
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.Backend.URL == "" {
		errs = errs.Append("backend.url", fmt.Errorf("cannot be empty"))
	}
	if c.Backend.RateLimit < 0 {
		errs = errs.Append("backend.rate_limit", fmt.Errorf("must not be negative"))
	}
	if c.Poll.Interval < 0 {
		errs = errs.Append("poll.interval", fmt.Errorf("must not be negative"))
	}
	if c.Poll.MaxFailures < 1 {
		errs = errs.Append("poll.max_failures", fmt.Errorf("must be at least 1"))
	}
	if _, err := lab.ParseKind(c.Lab.DefaultKind); err != nil {
		errs = errs.Append("lab.default_kind", err)
	}
	if c.Lab.MaxTTL < 1 || c.Lab.MaxTTL > lab.MaxMinutes {
		errs = errs.Append("lab.max_ttl", fmt.Errorf("must be 1-%d", lab.MaxMinutes))
	}
	if err := c.ValidateTTL(c.Lab.DefaultTTL); err != nil {
		errs = errs.Append("lab.default_ttl", err)
	}
	if err := c.ValidateExtend(c.Lab.ExtendMinutes); err != nil {
		errs = errs.Append("lab.extend_minutes", err)
	}
	for i, ttl := range c.Lab.TTLOptions {
		if err := c.ValidateTTL(ttl); err != nil {
			errs = errs.Append(fmt.Sprintf("lab.ttl_options[%d]", i), err)
		}
	}
	for i, rule := range c.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if !doublestar.ValidatePattern(rule.Pattern) {
			errs = errs.Append(field+".pattern", fmt.Errorf("invalid glob %q", rule.Pattern))
		}
		if rule.TTL != nil {
			if err := c.ValidateTTL(*rule.TTL); err != nil {
				errs = errs.Append(field+".ttl", err)
			}
		}
		if rule.ExtendMinutes != nil {
			if err := c.ValidateExtend(*rule.ExtendMinutes); err != nil {
				errs = errs.Append(field+".extend_minutes", err)
			}
		}
	}

	return errs.ToError()
}

// ValidateTTL checks a requested lifetime in minutes against the configured bounds.
func (c *Config) ValidateTTL(minutes int) error {
	if minutes < 1 || minutes > c.Lab.MaxTTL {
		return fmt.Errorf("%w: %d minutes (must be 1-%d)", lab.ErrInvalidTTL, minutes, c.Lab.MaxTTL)
	}
	return nil
}

// ValidateExtend checks a single extension in minutes. One extension may not
// exceed the maximum lifetime.
func (c *Config) ValidateExtend(minutes int) error {
	if minutes < 1 || minutes > c.Lab.MaxTTL {
		return fmt.Errorf("%w: extend by %d minutes (must be 1-%d)", lab.ErrInvalidTTL, minutes, c.Lab.MaxTTL)
	}
	return nil
}

// TTLFor returns the default lifetime for kind, honouring the first matching rule.
func (c *Config) TTLFor(kind lab.Kind) int {
	if rule := c.matchRule(kind); rule != nil && rule.TTL != nil {
		return *rule.TTL
	}
	return c.Lab.DefaultTTL
}

// ExtendMinutesFor returns how many minutes an extend adds for kind.
func (c *Config) ExtendMinutesFor(kind lab.Kind) int {
	if rule := c.matchRule(kind); rule != nil && rule.ExtendMinutes != nil {
		return *rule.ExtendMinutes
	}
	return c.Lab.ExtendMinutes
}

// TTLChoices returns the TTL options offered to the user, always including def.
func (c *Config) TTLChoices(def int) []int {
	choices := slices.Clone(c.Lab.TTLOptions)
	if !slices.Contains(choices, def) {
		choices = append(choices, def)
		slices.Sort(choices)
	}
	return choices
}

func (c *Config) matchRule(kind lab.Kind) *Rule {
	for i := range c.Rules {
		ok, err := doublestar.Match(c.Rules[i].Pattern, string(kind))
		if err == nil && ok {
			return &c.Rules[i]
		}
	}
	return nil
}
