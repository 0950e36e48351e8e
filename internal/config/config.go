// Package config loads the optional application configuration file. Missing
// files are fine, every setting has a default.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(td)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PoolConfig configures the environment pool.
type PoolConfig struct {
	Capacity      int      `yaml:"capacity"`
	MaxAge        Duration `yaml:"max_age"`
	IdleTimeout   Duration `yaml:"idle_timeout"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// ExecutionConfig configures script runs.
type ExecutionConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// VerificationConfig configures the post-install verification phase.
type VerificationConfig struct {
	Skip       bool     `yaml:"skip"`
	RetryCount int      `yaml:"retry_count"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// RollbackConfig configures the rollback phase.
type RollbackConfig struct {
	Skip bool `yaml:"skip"`
}

// Config is the application configuration.
type Config struct {
	BaseImage    string             `yaml:"base_image"`
	TemplatesDir string             `yaml:"templates_dir"`
	Pool         PoolConfig         `yaml:"pool"`
	Execution    ExecutionConfig    `yaml:"execution"`
	Verification VerificationConfig `yaml:"verification"`
	Rollback     RollbackConfig     `yaml:"rollback"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		BaseImage:    "ubuntu:22.04",
		TemplatesDir: "templates",
		Pool: PoolConfig{
			Capacity:      5,
			MaxAge:        Duration(time.Hour),
			IdleTimeout:   Duration(30 * time.Minute),
			SweepInterval: Duration(15 * time.Minute),
		},
		Execution: ExecutionConfig{
			Timeout: Duration(300 * time.Second),
		},
		Verification: VerificationConfig{
			RetryCount: 3,
			RetryDelay: Duration(5 * time.Second),
		},
	}
}

// Load reads the configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseImage == "" {
		return fmt.Errorf("base_image cannot be empty")
	}
	if c.Pool.Capacity <= 0 {
		return fmt.Errorf("pool capacity must be positive")
	}
	if c.Verification.RetryCount < 0 {
		return fmt.Errorf("verification retry_count cannot be negative")
	}
	return nil
}
