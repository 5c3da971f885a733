// Package config loads engine tuning parameters. Values come from an
// optional JSON file, overridden by KDE_* environment variables, with
// hard-coded defaults behind both. Fields omitted everywhere retain
// their default values, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"

	"github.com/banshee-data/kde/internal/kernel"
)

// EnvPrefix is the prefix for environment overrides, e.g. KDE_WORKERS.
const EnvPrefix = "kde"

// TuningConfig represents the engine tuning parameters. All fields are
// pointers so an unset field is distinguishable from an explicit zero.
type TuningConfig struct {
	// Workers is the size of the per-call worker pool. 0 means one
	// worker per available CPU.
	Workers *int `json:"workers,omitempty" envconfig:"WORKERS"`

	// FailFast selects the whole-call failure policy: the first
	// per-group error aborts the call instead of producing a null row.
	FailFast *bool `json:"fail_fast,omitempty" envconfig:"FAIL_FAST"`

	// BandwidthRule names the bandwidth estimator: "scott" (default)
	// or "silverman".
	BandwidthRule *string `json:"bandwidth_rule,omitempty" envconfig:"BANDWIDTH_RULE"`

	// StrictDegenerate rejects degenerate populations (single value or
	// zero variance) as errors instead of emitting all-zero densities.
	StrictDegenerate *bool `json:"strict_degenerate,omitempty" envconfig:"STRICT_DEGENERATE"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file and applies
// environment overrides on top. The file is validated to have a .json
// extension and to be under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a TuningConfig from environment variables alone.
func FromEnv() (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays KDE_* environment variables onto the config.
// Unset variables leave the corresponding fields untouched.
func (c *TuningConfig) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.BandwidthRule != nil {
		if _, err := kernel.ParseRule(*c.BandwidthRule); err != nil {
			return err
		}
	}
	return nil
}

// GetWorkers returns the workers value or the default (0 = one worker
// per available CPU; the driver resolves 0 to GOMAXPROCS).
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetFailFast returns the fail_fast value or the default.
func (c *TuningConfig) GetFailFast() bool {
	if c.FailFast == nil {
		return false // default: partial-failure policy
	}
	return *c.FailFast
}

// GetStrictDegenerate returns the strict_degenerate value or the default.
func (c *TuningConfig) GetStrictDegenerate() bool {
	if c.StrictDegenerate == nil {
		return false // default: degenerate groups yield all-zero rows
	}
	return *c.StrictDegenerate
}

// GetBandwidthRule returns the parsed bandwidth rule or the default.
func (c *TuningConfig) GetBandwidthRule() kernel.Rule {
	if c.BandwidthRule == nil {
		return kernel.RuleScott
	}
	r, err := kernel.ParseRule(*c.BandwidthRule)
	if err != nil {
		return kernel.RuleScott // Validate rejects unknown rules earlier
	}
	return r
}
