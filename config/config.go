// Package config loads the journey debugger service configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SessionConfig holds the defaults applied to every debug session the
// service starts.
type SessionConfig struct {
	PauseOnStart       bool `json:"pauseOnStart" yaml:"pause_on_start"`
	PauseOnError       bool `json:"pauseOnError" yaml:"pause_on_error"`
	PauseOnCaughtError bool `json:"pauseOnCaughtError" yaml:"pause_on_caught_error"`
	MaxCallStackDepth  int  `json:"maxCallStackDepth" yaml:"max_call_stack_depth"`
	Verbose            bool `json:"verbose" yaml:"verbose"`
	StepDelayMS        int  `json:"stepDelayMs" yaml:"step_delay_ms"`
}

// Config is the overall service configuration.
type Config struct {
	ListenAddr string        `json:"listenAddr" yaml:"listen_addr"`
	LogLevel   string        `json:"logLevel" yaml:"log_level"`
	JourneyDir string        `json:"journeyDir" yaml:"journey_dir"`
	Session    SessionConfig `json:"session" yaml:"session"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		Session: SessionConfig{
			PauseOnStart:      true,
			PauseOnError:      true,
			MaxCallStackDepth: 100,
			StepDelayMS:       50,
		},
	}
}

// LoadFromFile loads the configuration from a YAML file. Fields absent from
// the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured log level string onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
