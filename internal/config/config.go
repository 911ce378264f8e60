package config

import (
	"fmt"
)

// Config represents the complete configuration for the sketchprep tool.
// It covers the serve and process commands and supports loading from
// configuration files, environment variables, and command-line flags.
// The pipeline filter parameters themselves are fixed constants and are
// deliberately not configurable.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Output configuration (for process command)
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// OutputConfig contains settings for writing pipeline steps to disk.
type OutputConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Manifest bool   `mapstructure:"manifest" yaml:"manifest" json:"manifest"`
}

// DefaultConfig returns the configuration defaults. The port matches the
// original demo's fixed listener.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3457,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Output: OutputConfig{
			Dir:      "steps",
			Manifest: true,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d MB (must be positive)", c.Server.MaxUploadMB)
	}

	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid request timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}

	return nil
}
