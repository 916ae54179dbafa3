package spatialstat

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Config carries the settings shared by the batched operations.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Workers bounds the number of goroutines used by batched operations.
	// 0 means runtime.NumCPU(), and larger values are capped there.
	// Default: 0 (auto).
	Workers int

	// Seed drives every Monte-Carlo step (sampling windows, label
	// permutations). The same seed and input give the same output regardless
	// of Workers. Default: 0.
	Seed uint64

	// PValue is the significance threshold used to classify patterns,
	// hotspots and interactions. Must be in (0, 1). Default: 0.05.
	PValue float64

	// MinCells is the minimum number of points a region (or quadrat, for
	// hotspots) needs before a statistic is computed. Must be >= 0.
	// Default: 10. Unlike PValue, zero is a valid setting (no minimum) and
	// is not replaced, so a zero-value Config applies no minimum.
	MinCells int

	// Logger receives warnings about recoverable input problems, for example
	// a bounding box that does not cover its points. nil means no logging.
	Logger *zap.Logger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		PValue:   0.05,
		MinCells: 10,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cpus := runtime.NumCPU(); cfg.Workers == 0 || cfg.Workers > cpus {
		cfg.Workers = cpus
	}
	if cfg.PValue == 0 {
		cfg.PValue = 0.05
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("spatialstat: Workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.PValue <= 0 || cfg.PValue >= 1 {
		return fmt.Errorf("spatialstat: PValue must be in (0, 1), got %f", cfg.PValue)
	}
	if cfg.MinCells < 0 {
		return fmt.Errorf("spatialstat: MinCells must be >= 0, got %d", cfg.MinCells)
	}
	return nil
}

// prepareConfig applies defaults and validates in one step.
func prepareConfig(cfg *Config) error {
	applyDefaults(cfg)
	return validateConfig(cfg)
}
