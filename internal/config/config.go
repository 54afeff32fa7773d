// Package config defines the viewer's configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// ReplaysDir is the directory holding one recorded file per replay.
	ReplaysDir string `koanf:"replays_dir"`

	// ReplayExtension is the file suffix that marks a replay file.
	ReplayExtension string `koanf:"replay_extension"`

	// AverageSpeedMPS converts distance gaps into time gaps.
	AverageSpeedMPS float64 `koanf:"average_speed_mps"`

	// MaxClassifiedPosition is the highest position treated as classified.
	MaxClassifiedPosition int `koanf:"max_classified_position"`

	// LapSampleLimit and TelemetrySampleLimit cap the player samples
	// returned by the replay overview.
	LapSampleLimit       int `koanf:"lap_sample_limit"`
	TelemetrySampleLimit int `koanf:"telemetry_sample_limit"`

	// PrewarmWorkers loads every replay's session and roster at startup.
	// Zero disables it.
	PrewarmWorkers int `koanf:"prewarm_workers"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":5000",
		ReplaysDir:            "./replays",
		ReplayExtension:       ".sqlite3",
		AverageSpeedMPS:       70.0,
		MaxClassifiedPosition: 20,
		LapSampleLimit:        100,
		TelemetrySampleLimit:  50,
		PrewarmWorkers:        2,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ReplaysDir) == "":
		return fmt.Errorf("%w: replays_dir must not be empty", ErrInvalidConfig)
	case c.AverageSpeedMPS <= 0:
		return fmt.Errorf("%w: average_speed_mps must be positive, got %v", ErrInvalidConfig, c.AverageSpeedMPS)
	case c.MaxClassifiedPosition <= 0:
		return fmt.Errorf("%w: max_classified_position must be positive, got %d", ErrInvalidConfig, c.MaxClassifiedPosition)
	case c.LapSampleLimit < 0 || c.TelemetrySampleLimit < 0:
		return fmt.Errorf("%w: sample limits must not be negative", ErrInvalidConfig)
	case c.PrewarmWorkers < 0:
		return fmt.Errorf("%w: prewarm_workers must not be negative, got %d", ErrInvalidConfig, c.PrewarmWorkers)
	}
	return nil
}
