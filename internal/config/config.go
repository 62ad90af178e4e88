// Package config loads arcfs command-line settings from an optional YAML file,
// ARCFS_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel            string        `mapstructure:"log_level"`
	LogFormat           string        `mapstructure:"log_format"`
	EagerSize           bool          `mapstructure:"eager_size"`
	BufferSize          int           `mapstructure:"buffer_size"`
	Watch               bool          `mapstructure:"watch"`
	CanonicalizeTimeout time.Duration `mapstructure:"canonicalize_timeout"`
}

// Load reads cfgFile, or arcfs.yaml from $HOME or the working directory when
// cfgFile is empty. A missing default file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("eager_size", false)
	v.SetDefault("buffer_size", 0)
	v.SetDefault("watch", false)
	v.SetDefault("canonicalize_timeout", 5*time.Second)

	// ARCFS_LOG_LEVEL and friends
	v.SetEnvPrefix("arcfs")
	v.AutomaticEnv()

	// Config file handling
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName("arcfs")
		v.SetConfigType("yaml")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects unknown log levels and formats and negative timeouts.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.CanonicalizeTimeout < 0 {
		return fmt.Errorf("canonicalize_timeout must not be negative, got %s", c.CanonicalizeTimeout)
	}
	return nil
}

// FileSystemEnv is the option map handed to providers when a filesystem is
// created.
func (c *Config) FileSystemEnv() map[string]any {
	return map[string]any{
		"eager_size":  c.EagerSize,
		"buffer_size": c.BufferSize,
		"watch":       c.Watch,
	}
}
