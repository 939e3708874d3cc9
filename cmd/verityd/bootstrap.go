package main

import (
	"log/slog"

	"verity/internal/calibration"
	"verity/internal/config"
	"verity/internal/crossval"
	"verity/internal/engines"
	"verity/internal/logging"
)

// registerAnalyzers returns the analyzers enrolled in scheduled calibration.
// Deployments add adapters for their local engines here; the runner skips
// any analyzer whose fixture set is absent.
func registerAnalyzers(_ *config.Config, _ *slog.Logger) []calibration.Analyzer {
	return nil
}

// registerEngines wires the configured secondary engine endpoints. Missing
// endpoints leave their strategy unavailable, which routes auto candidates
// to human review instead of trusting them unverified.
func registerEngines(cfg *config.Config, logger *slog.Logger) crossval.Engines {
	log := logging.NewComponentLogger(logger, "daemon")

	var eng crossval.Engines
	if endpoint := cfg.Engines.OCR; endpoint.URL != "" {
		eng.OCR = engines.NewHTTPOCR(endpoint.ID, endpoint.URL)
		log.Info("registered ocr engine", logging.String("engine", endpoint.ID))
	}
	if endpoint := cfg.Engines.Transcriber; endpoint.URL != "" {
		eng.Transcriber = engines.NewHTTPTranscriber(endpoint.ID, endpoint.URL)
		log.Info("registered transcriber engine", logging.String("engine", endpoint.ID))
	}
	for _, endpoint := range cfg.Engines.PII {
		if endpoint.URL == "" {
			continue
		}
		eng.PIIDetectors = append(eng.PIIDetectors, engines.NewHTTPPIIDetector(endpoint.ID, endpoint.URL))
		log.Info("registered pii detector", logging.String("engine", endpoint.ID))
	}

	if eng.OCR == nil && eng.Transcriber == nil && len(eng.PIIDetectors) == 0 {
		log.Warn("no secondary engines configured; auto candidates will queue for review")
	}
	return eng
}
