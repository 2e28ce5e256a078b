// Package config provides configuration loading for compsig.
// It covers application settings (YAML file plus environment variables), the
// per-condition trial Configuration, and experiment files that map output
// directories to configurations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/compsig/internal/constants"
	"gopkg.in/yaml.v3"
)

// Settings contains application-wide compsig settings.
type Settings struct {
	// Root is the output root; condition directories and the results index
	// live under it.
	Root string `json:"root" yaml:"root"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Classifier contains settings for nontrivial-signaling scoring.
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
}

// LoggingConfig configures compsig's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the JSONL trace log under <root>/.compsig.
	Level string `json:"level" yaml:"level"`
}

// ClassifierConfig configures the nontrivial-signaling classifier.
type ClassifierConfig struct {
	// Threshold is the probability above which a Sender2 context commits to
	// a second message. Range: (0, 1).
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Root: ".",
		Logging: LoggingConfig{
			Level: "info",
		},
		Classifier: ClassifierConfig{
			Threshold: constants.DefaultCommitThreshold,
		},
	}
}

// Load loads settings from the default location and environment variables.
// Order: defaults -> ~/.compsig/config.yaml -> environment variables
func Load() (*Settings, error) {
	settings := DefaultSettings()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(homeDir, constants.StateDirName, "config.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			fileSettings, loadErr := LoadSettingsFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			settings = fileSettings
		}
	}

	applyEnvOverrides(settings)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// LoadSettingsFromFile loads settings from a specific YAML file.
func LoadSettingsFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return settings, nil
}

// Validate checks that the settings are valid.
func (s *Settings) Validate() error {
	if s.Classifier.Threshold <= 0 || s.Classifier.Threshold >= 1 {
		return fmt.Errorf("classifier threshold must be in (0, 1), got %f", s.Classifier.Threshold)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if s.Logging.Level != "" && !validLevels[s.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", s.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the settings.
func applyEnvOverrides(settings *Settings) {
	if v := os.Getenv("COMPSIG_ROOT"); v != "" {
		settings.Root = v
	}

	if v := os.Getenv("COMPSIG_LOG_LEVEL"); v != "" {
		settings.Logging.Level = v
	}

	if v := os.Getenv("COMPSIG_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.Classifier.Threshold = f
		}
	}
}
