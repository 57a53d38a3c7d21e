package doctor

import (
	"context"
	"errors"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/labstack/internal/core/config"
)

// ConfigCheck validates the loaded configuration.
type ConfigCheck struct {
	config     *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{config: cfg, configPath: configPath}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config loaded",
			Status: StatusFail,
			Detail: "configuration not loaded",
		})
		return result
	}

	err := c.config.ValidateDeep()
	warnings := c.config.Warnings()

	if err == nil && len(warnings) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config valid",
			Status: StatusPass,
			Detail: c.configPath,
		})
		return result
	}

	if err != nil {
		for _, fe := range flatten(err) {
			label := fe.Field
			if label == "" {
				label = "validation"
			}
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusFail,
				Detail: fe.Err.Error(),
			})
		}
	}

	for _, w := range warnings {
		label := w.Category
		if w.Item != "" {
			label += " (" + w.Item + ")"
		}
		result.Items = append(result.Items, CheckItem{
			Label:  label,
			Status: StatusWarn,
			Detail: w.Message,
		})
	}

	return result
}

// flatten unwraps the nested field errors ValidateDeep builds around Validate.
func flatten(err error) criterio.FieldErrors {
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return criterio.FieldErrors{{Err: err}}
	}

	var out criterio.FieldErrors
	for _, fe := range fieldErrs {
		var nested criterio.FieldErrors
		if fe.Field == "" && errors.As(fe.Err, &nested) {
			out = append(out, flatten(fe.Err)...)
			continue
		}
		out = append(out, fe)
	}
	return out
}
