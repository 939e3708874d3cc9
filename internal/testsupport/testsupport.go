// Package testsupport provides shared helpers for package tests: temp-dir
// configs and throwaway SQLite stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"verity/internal/config"
	"verity/internal/store"
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
	cfg.Calibration.FixtureDir = filepath.Join(base, "fixtures")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLeaseMinutes overrides the review claim lease.
func WithLeaseMinutes(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Review.ClaimLeaseMinutes = minutes
	}
}

// MustOpenStore opens a store against the test config and closes it on
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
