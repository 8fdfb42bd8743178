// Package config loads the valuation engine's YAML config file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"income_valuation/pkg/core/assumption"
	"income_valuation/pkg/core/logging"
	"income_valuation/pkg/core/valuation"
)

// Environment variables read after the .env file.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogLevel    = "VALUATION_LOG_LEVEL"
)

// Config is the full config file.
type Config struct {
	Log      logging.LogConfig `yaml:"log"`
	Engine   EngineConfig      `yaml:"engine"`
	Database DatabaseConfig    `yaml:"database"`
}

// EngineConfig tunes the valuation runner.
type EngineConfig struct {
	Frequency   string               `yaml:"frequency"` // monthly | annual
	Sensitivity valuation.AxisConfig `yaml:"sensitivity"`
	IRR         valuation.IRROptions `yaml:"irr"`
}

// DatabaseConfig is where saved runs go.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: logging.LogConfig{Level: "info", Format: "json"},
		Engine: EngineConfig{
			Frequency: "monthly",
			Sensitivity: valuation.AxisConfig{
				DiscountRateStep: assumption.DefaultDiscountRateStep,
				CapRateStep:      assumption.DefaultCapRateStep,
				Steps:            assumption.DefaultSensitivitySteps,
				Epsilon:          valuation.DefaultBaseEpsilon,
			},
			IRR: valuation.DefaultIRROptions,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; an
// unreadable or malformed one is. envFile, when non-empty, is loaded with
// godotenv first; variables already set in the process win.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// Environment overrides
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}

	return cfg, cfg.Validate()
}

// Validate checks values the runner cannot default.
func (c Config) Validate() error {
	if _, err := c.Engine.DiscountFrequency(); err != nil {
		return err
	}
	s := c.Engine.Sensitivity
	if s.Steps < 0 || (s.Steps > 0 && s.Steps%2 == 0) {
		return fmt.Errorf("engine.sensitivity.steps must be odd, got %d", s.Steps)
	}
	if s.DiscountRateStep < 0 || s.CapRateStep < 0 {
		return errors.New("engine.sensitivity step sizes cannot be negative")
	}
	return nil
}

// DiscountFrequency parses the configured frequency.
func (e EngineConfig) DiscountFrequency() (valuation.Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(e.Frequency)) {
	case "", "monthly":
		return valuation.MonthlyDiscounting, nil
	case "annual", "yearly":
		return valuation.AnnualDiscounting, nil
	default:
		return 0, fmt.Errorf("engine.frequency %q is not monthly or annual", e.Frequency)
	}
}

// RunnerOptions converts the engine section to valuation options.
func (e EngineConfig) RunnerOptions() valuation.Options {
	freq, _ := e.DiscountFrequency()
	return valuation.Options{Frequency: freq, Axes: e.Sensitivity, IRR: e.IRR}
}
