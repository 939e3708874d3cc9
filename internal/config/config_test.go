package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"verity/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for absent config file")
	}
	if cfg.Thresholds.AutoVerify != 0.85 {
		t.Fatalf("expected default auto_verify 0.85, got %v", cfg.Thresholds.AutoVerify)
	}
	if cfg.Review.ClaimLeaseMinutes != 15 {
		t.Fatalf("expected default lease 15m, got %d", cfg.Review.ClaimLeaseMinutes)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[thresholds]\nauto_verify = 0.40\nreview_medium = 0.60\nreview_low = 0.85\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error for inverted thresholds")
	}
	if !strings.Contains(err.Error(), "review_low < review_medium < auto_verify") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[cross_validation]
ocr_similarity = 0.95
captions_auto_verify = true

[calibration]
degraded_multiplier = 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.CrossValidation.OCRSimilarity != 0.95 {
		t.Fatalf("override not applied: %v", cfg.CrossValidation.OCRSimilarity)
	}
	if !cfg.CrossValidation.CaptionsAutoVerify {
		t.Fatal("captions_auto_verify override not applied")
	}
	if cfg.Calibration.DegradedMultiplier != 0.5 {
		t.Fatalf("degraded_multiplier override not applied: %v", cfg.Calibration.DegradedMultiplier)
	}
	// Untouched sections keep defaults.
	if cfg.Anomaly.MaxPIIEntities != 10 {
		t.Fatalf("expected default max_pii_entities, got %d", cfg.Anomaly.MaxPIIEntities)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
