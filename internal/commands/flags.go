package commands

import (
	"os"
	"path/filepath"

	"github.com/hay-kot/labstack/internal/core/config"
	"github.com/hay-kot/labstack/internal/labstack"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	APIURL     string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Service is the labstack service for orchestrating operations
	Service *labstack.Service
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "labstack", "config.yaml")
}
