package config

import (
	"fmt"
	"net/url"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/labstack/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// CommandData defines available fields for command templates.
type CommandData struct {
	ID   string
	Kind string
	URL  string
	TTL  int
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks command templates and the backend URL.
func (c *Config) ValidateDeep() error {
	var errs criterio.FieldErrorsBuilder

	if err := c.Validate(); err != nil {
		errs = errs.Append("", err)
	}

	if u, err := url.Parse(c.Backend.URL); err != nil {
		errs = errs.Append("backend.url", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = errs.Append("backend.url", fmt.Errorf("scheme must be http or https, got %q", u.Scheme))
	}

	for i, cmd := range c.Commands.OnReady {
		if _, err := tmpl.Render(cmd, CommandData{}); err != nil {
			errs = errs.Append(fmt.Sprintf("commands.on_ready[%d]", i), fmt.Errorf("template error: %w", err))
		}
	}
	for i, cmd := range c.Commands.OnCopy {
		if _, err := tmpl.Render(cmd, CommandData{}); err != nil {
			errs = errs.Append(fmt.Sprintf("commands.on_copy[%d]", i), fmt.Errorf("template error: %w", err))
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	for i, rule := range c.Rules {
		if rule.TTL == nil && rule.ExtendMinutes == nil {
			warnings = append(warnings, ValidationWarning{
				Category: "Rules",
				Item:     fmt.Sprintf("rules[%d]", i),
				Message:  fmt.Sprintf("rule %q overrides nothing", rule.Pattern),
			})
		}
	}

	if c.Backend.ExtendEndpoint {
		return warnings
	}
	warnings = append(warnings, ValidationWarning{
		Category: "Backend",
		Item:     "backend.extend_endpoint",
		Message:  "extend endpoint disabled; extensions only change the local countdown",
	})

	return warnings
}
