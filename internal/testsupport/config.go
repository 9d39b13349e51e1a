// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs and stores wired for cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"requestarr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithABS sets Audiobookshelf credentials on the test config.
func WithABS(url, token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.ABS.URL = url
		cfg.ABS.APIToken = token
	}
}

// WithThreshold overrides the sync matching threshold.
func WithThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.Threshold = threshold
	}
}
