package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/styles"
)

// kindOptions lists every kind for a select field.
func kindOptions() []huh.Option[string] {
	kinds := lab.Kinds()
	options := make([]huh.Option[string], len(kinds))
	for i, info := range kinds {
		options[i] = huh.NewOption(info.Title, string(info.Kind))
	}
	return options
}

// ttlOptions lists the configured TTL choices, always including def.
func ttlOptions(cfg *config.Config, def int) []huh.Option[string] {
	choices := cfg.TTLChoices(def)
	options := make([]huh.Option[string], len(choices))
	for i, ttl := range choices {
		options[i] = huh.NewOption(fmt.Sprintf("%d minutes", ttl), strconv.Itoa(ttl))
	}
	return options
}

// runLaunchForm asks for the kind and lifetime. kind and ttl hold the
// defaults on entry and the answers on return. A ttl of zero picks the
// kind's default.
func runLaunchForm(cfg *config.Config, kind *string, ttl *int) error {
	if *kind == "" {
		*kind = cfg.Lab.DefaultKind
	}

	kindForm := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Lab").
			DescriptionFunc(func() string {
				return lab.Kind(*kind).Info().Description
			}, kind).
			Options(kindOptions()...).
			Value(kind),
	)).WithTheme(styles.FormTheme())

	if err := kindForm.Run(); err != nil {
		return err
	}

	parsed, err := lab.ParseKind(*kind)
	if err != nil {
		return err
	}
	if *ttl == 0 {
		*ttl = cfg.TTLFor(parsed)
	}

	ttlValue := strconv.Itoa(*ttl)
	ttlForm := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Time to live").
			Options(ttlOptions(cfg, *ttl)...).
			Value(&ttlValue),
	)).WithTheme(styles.FormTheme())

	if err := ttlForm.Run(); err != nil {
		return err
	}

	n, err := strconv.Atoi(ttlValue)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", ttlValue, err)
	}
	*ttl = n
	return nil
}
