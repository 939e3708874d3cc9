package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateCrossValidation(); err != nil {
		return err
	}
	if err := c.validateAnomaly(); err != nil {
		return err
	}
	if err := c.validateCalibration(); err != nil {
		return err
	}
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateThresholds() error {
	t := c.Thresholds
	for name, value := range map[string]float64{
		"thresholds.auto_verify":   t.AutoVerify,
		"thresholds.review_medium": t.ReviewMedium,
		"thresholds.review_low":    t.ReviewLow,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if !(t.ReviewLow < t.ReviewMedium && t.ReviewMedium < t.AutoVerify) {
		return errors.New("thresholds must satisfy review_low < review_medium < auto_verify")
	}
	return nil
}

func (c *Config) validateCrossValidation() error {
	cv := c.CrossValidation
	if cv.OCRSimilarity < 0 || cv.OCRSimilarity > 1 {
		return errors.New("cross_validation.ocr_similarity must be between 0 and 1")
	}
	if cv.MaxWER < 0 || cv.MaxWER > 1 {
		return errors.New("cross_validation.max_wer must be between 0 and 1")
	}
	if cv.TranscriptionSample <= 0 || cv.TranscriptionSample > 1 {
		return errors.New("cross_validation.transcription_sample_fraction must be in (0, 1]")
	}
	if cv.PIIMinDetectors < 2 {
		return errors.New("cross_validation.pii_min_detectors must be at least 2")
	}
	return nil
}

func (c *Config) validateAnomaly() error {
	a := c.Anomaly
	if a.MinDictionaryRatio < 0 || a.MinDictionaryRatio > 1 {
		return errors.New("anomaly.min_dictionary_ratio must be between 0 and 1")
	}
	if a.ConfidenceStddev <= 0 || a.ConfidenceStddev > 1 {
		return errors.New("anomaly.confidence_stddev must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateCalibration() error {
	cal := c.Calibration
	if cal.MinAccuracy < 0 || cal.MinAccuracy > 1 {
		return errors.New("calibration.min_accuracy must be between 0 and 1")
	}
	if cal.HardFloor < 0 || cal.HardFloor > 1 {
		return errors.New("calibration.hard_floor must be between 0 and 1")
	}
	if cal.HardFloor >= cal.MinAccuracy {
		return errors.New("calibration.hard_floor must be below calibration.min_accuracy")
	}
	if cal.DegradedMultiplier <= 0 || cal.DegradedMultiplier >= 1 {
		return errors.New("calibration.degraded_multiplier must be in (0, 1)")
	}
	return nil
}

func (c *Config) validateEngines() error {
	endpoints := append([]EngineEndpoint{c.Engines.OCR, c.Engines.Transcriber}, c.Engines.PII...)
	for _, endpoint := range endpoints {
		if endpoint.URL != "" && endpoint.ID == "" {
			return fmt.Errorf("engines: endpoint %q needs an id", endpoint.URL)
		}
		if endpoint.ID != "" && endpoint.URL == "" {
			return fmt.Errorf("engines: endpoint %q needs a url", endpoint.ID)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
