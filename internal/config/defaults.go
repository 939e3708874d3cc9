package config

const (
	defaultDataDir                = "~/.local/share/verity"
	defaultLogDir                 = "~/.local/share/verity/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultAutoVerifyThreshold    = 0.85
	defaultReviewMediumThreshold  = 0.60
	defaultReviewLowThreshold     = 0.40
	defaultOCRSimilarity          = 0.90
	defaultTranscriptionSample    = 0.10
	defaultMaxWER                 = 0.15
	defaultPIIMinDetectors        = 2
	defaultEngineTimeoutSeconds   = 30
	defaultMaxPIIEntities         = 10
	defaultMaxCharsPerSecond      = 50
	defaultMinDictionaryRatio     = 0.30
	defaultConfidenceStddev       = 0.25
	defaultConfidenceWindow       = 20
	defaultClaimLeaseMinutes      = 15
	defaultCalibrationInterval    = 24
	defaultCalibrationMinAccuracy = 0.95
	defaultCalibrationHardFloor   = 0.50
	defaultDegradedMultiplier     = 0.8
	defaultFixtureDir             = "~/.local/share/verity/fixtures"
	defaultSampleCountRequired    = 5
	defaultWorkerCount            = 4
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Thresholds: Thresholds{
			AutoVerify:   defaultAutoVerifyThreshold,
			ReviewMedium: defaultReviewMediumThreshold,
			ReviewLow:    defaultReviewLowThreshold,
		},
		CrossValidation: CrossValidation{
			OCRSimilarity:       defaultOCRSimilarity,
			TranscriptionSample: defaultTranscriptionSample,
			MaxWER:              defaultMaxWER,
			PIIMinDetectors:     defaultPIIMinDetectors,
			EngineTimeout:       defaultEngineTimeoutSeconds,
		},
		Anomaly: Anomaly{
			MaxPIIEntities:     defaultMaxPIIEntities,
			MaxCharsPerSecond:  defaultMaxCharsPerSecond,
			MinDictionaryRatio: defaultMinDictionaryRatio,
			ConfidenceStddev:   defaultConfidenceStddev,
			ConfidenceWindow:   defaultConfidenceWindow,
		},
		Review: Review{
			ClaimLeaseMinutes: defaultClaimLeaseMinutes,
		},
		Calibration: Calibration{
			IntervalHours:       defaultCalibrationInterval,
			RunOnStart:          true,
			MinAccuracy:         defaultCalibrationMinAccuracy,
			HardFloor:           defaultCalibrationHardFloor,
			DegradedMultiplier:  defaultDegradedMultiplier,
			FixtureDir:          defaultFixtureDir,
			SampleCountRequired: defaultSampleCountRequired,
		},
		Workers: Workers{
			Count: defaultWorkerCount,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
