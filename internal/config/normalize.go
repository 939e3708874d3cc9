package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCrossValidation()
	c.normalizeAnomaly()
	c.normalizeReview()
	c.normalizeCalibration()
	c.normalizeWorkers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCrossValidation() {
	if c.CrossValidation.EngineTimeout <= 0 {
		c.CrossValidation.EngineTimeout = defaultEngineTimeoutSeconds
	}
	if c.CrossValidation.PIIMinDetectors <= 0 {
		c.CrossValidation.PIIMinDetectors = defaultPIIMinDetectors
	}
	if c.CrossValidation.TranscriptionSample <= 0 {
		c.CrossValidation.TranscriptionSample = defaultTranscriptionSample
	}
}

func (c *Config) normalizeAnomaly() {
	if c.Anomaly.MaxPIIEntities <= 0 {
		c.Anomaly.MaxPIIEntities = defaultMaxPIIEntities
	}
	if c.Anomaly.MaxCharsPerSecond <= 0 {
		c.Anomaly.MaxCharsPerSecond = defaultMaxCharsPerSecond
	}
	if c.Anomaly.ConfidenceWindow <= 0 {
		c.Anomaly.ConfidenceWindow = defaultConfidenceWindow
	}
}

func (c *Config) normalizeReview() {
	if c.Review.ClaimLeaseMinutes <= 0 {
		c.Review.ClaimLeaseMinutes = defaultClaimLeaseMinutes
	}
}

func (c *Config) normalizeCalibration() {
	if c.Calibration.IntervalHours <= 0 {
		c.Calibration.IntervalHours = defaultCalibrationInterval
	}
	if c.Calibration.SampleCountRequired <= 0 {
		c.Calibration.SampleCountRequired = defaultSampleCountRequired
	}
	if strings.TrimSpace(c.Calibration.FixtureDir) == "" {
		c.Calibration.FixtureDir = defaultFixtureDir
	}
	if expanded, err := expandPath(c.Calibration.FixtureDir); err == nil {
		c.Calibration.FixtureDir = expanded
	}
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
