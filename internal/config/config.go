package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Thresholds partitions adjusted confidence into routing tiers.
type Thresholds struct {
	AutoVerify   float64 `toml:"auto_verify"`
	ReviewMedium float64 `toml:"review_medium"`
	ReviewLow    float64 `toml:"review_low"`
}

// CrossValidation contains settings for secondary-engine corroboration.
type CrossValidation struct {
	OCRSimilarity       float64 `toml:"ocr_similarity"`
	TranscriptionSample float64 `toml:"transcription_sample_fraction"`
	MaxWER              float64 `toml:"max_wer"`
	PIIMinDetectors     int     `toml:"pii_min_detectors"`
	EngineTimeout       int     `toml:"engine_timeout_seconds"`
	// CaptionsAutoVerify relaxes the conservative caption policy. Captions
	// carry no comparable confidence signal, so this defaults to false.
	CaptionsAutoVerify bool `toml:"captions_auto_verify"`
}

// Anomaly contains rule thresholds for the anomaly detector.
type Anomaly struct {
	MaxPIIEntities     int     `toml:"max_pii_entities"`
	MaxCharsPerSecond  float64 `toml:"max_chars_per_second"`
	MinDictionaryRatio float64 `toml:"min_dictionary_ratio"`
	ConfidenceStddev   float64 `toml:"confidence_stddev"`
	ConfidenceWindow   int     `toml:"confidence_window"`
}

// Review contains settings for the human review queue.
type Review struct {
	ClaimLeaseMinutes int `toml:"claim_lease_minutes"`
}

// Calibration contains settings for scheduled analyzer self-tests.
type Calibration struct {
	IntervalHours       int     `toml:"interval_hours"`
	RunOnStart          bool    `toml:"run_on_start"`
	MinAccuracy         float64 `toml:"min_accuracy"`
	HardFloor           float64 `toml:"hard_floor"`
	DegradedMultiplier  float64 `toml:"degraded_multiplier"`
	FixtureDir          string  `toml:"fixture_dir"`
	SampleCountRequired int     `toml:"sample_count_required"`
}

// EngineEndpoint identifies one external secondary engine.
type EngineEndpoint struct {
	ID  string `toml:"id"`
	URL string `toml:"url"`
}

// Engines configures the secondary engines used for cross-validation. Empty
// endpoints leave the corresponding strategy on the unavailable path, which
// routes auto candidates to human review.
type Engines struct {
	OCR         EngineEndpoint   `toml:"ocr"`
	Transcriber EngineEndpoint   `toml:"transcriber"`
	PII         []EngineEndpoint `toml:"pii"`
}

// Workers contains ingestion worker pool sizing.
type Workers struct {
	Count int `toml:"count"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for verity.
//
// Sections by subsystem:
//   - Paths: data and log directories
//   - Thresholds: confidence routing tiers
//   - CrossValidation: secondary-engine corroboration settings
//   - Anomaly: anomaly detector rule thresholds
//   - Review: human review queue lease settings
//   - Calibration: analyzer self-test schedule and health bounds
//   - Engines: secondary engine endpoints for cross-validation
//   - Workers: ingestion pool sizing
//   - Logging: log format and level
type Config struct {
	Paths           Paths           `toml:"paths"`
	Thresholds      Thresholds      `toml:"thresholds"`
	CrossValidation CrossValidation `toml:"cross_validation"`
	Anomaly         Anomaly         `toml:"anomaly"`
	Review          Review          `toml:"review"`
	Calibration     Calibration     `toml:"calibration"`
	Engines         Engines         `toml:"engines"`
	Workers         Workers         `toml:"workers"`
	Logging         Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/verity/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("verity.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.IncomingDir(), c.ProcessedDir(), c.FailedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := strings.TrimSpace(c.Calibration.FixtureDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create fixture directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the verification database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "verity.db")
}

// LockPath returns the location of the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "verityd.lock")
}

// IncomingDir is the spool directory the daemon watches for submissions.
func (c *Config) IncomingDir() string {
	return filepath.Join(c.Paths.DataDir, "incoming")
}

// ProcessedDir holds submission files that were accepted.
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.Paths.DataDir, "processed")
}

// FailedDir holds submission files that could not be parsed.
func (c *Config) FailedDir() string {
	return filepath.Join(c.Paths.DataDir, "failed")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
