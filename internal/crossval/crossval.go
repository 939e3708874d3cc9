// Package crossval corroborates high-confidence results with independent
// secondary engines before they are trusted as evidence. Each content type
// has its own strategy; the registry picks the strategy and degrades to the
// review queue when an engine is unreachable.
package crossval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"verity/internal/analysis"
	"verity/internal/config"
	"verity/internal/engines"
	"verity/internal/logging"
)

// Outcome is a cross-validation verdict for one result.
type Outcome struct {
	Disposition analysis.Disposition
	Method      string
	Priority    analysis.Priority
	NeedsReview bool
	Detail      string
}

// Validator is one content-type strategy.
type Validator interface {
	ContentType() analysis.ContentType
	Validate(ctx context.Context, result *analysis.Result) (Outcome, error)
}

// Engines bundles the secondary engines available for corroboration. Nil or
// empty fields mean that strategy degrades to the unavailable path.
type Engines struct {
	OCR          engines.OCREngine
	Transcriber  engines.Transcriber
	PIIDetectors []engines.PIIDetector
}

// Registry dispatches results to their content-type strategy.
type Registry struct {
	validators map[analysis.ContentType]Validator
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRegistry builds the full strategy set.
func NewRegistry(cfg *config.Config, eng Engines, logger *slog.Logger) *Registry {
	log := logging.NewComponentLogger(logger, "crossval")
	validators := map[analysis.ContentType]Validator{
		analysis.ContentOCR:           &ocrValidator{engine: eng.OCR, minSimilarity: cfg.CrossValidation.OCRSimilarity},
		analysis.ContentTranscription: &transcriptionValidator{engine: eng.Transcriber, sampleFraction: cfg.CrossValidation.TranscriptionSample, maxWER: cfg.CrossValidation.MaxWER},
		analysis.ContentPII:           &piiValidator{detectors: eng.PIIDetectors, minDetectors: cfg.CrossValidation.PIIMinDetectors},
		analysis.ContentCaption:       &captionValidator{autoVerify: cfg.CrossValidation.CaptionsAutoVerify},
	}
	return &Registry{
		validators: validators,
		timeout:    time.Duration(cfg.CrossValidation.EngineTimeout) * time.Second,
		logger:     log,
	}
}

// Validate runs the strategy for the result's content type under the engine
// timeout budget. Engine unavailability and timeouts are not verdicts
// against the result: they degrade to a review outcome with the
// unavailable method so a human decides.
func (r *Registry) Validate(ctx context.Context, result *analysis.Result) (Outcome, error) {
	validator, ok := r.validators[result.ContentType]
	if !ok {
		return Outcome{}, fmt.Errorf("no validator for content type %q", result.ContentType)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	outcome, err := validator.Validate(ctx, result)
	if err != nil {
		if engines.Soft(err) {
			r.logger.Warn("cross-validation unavailable",
				logging.String(logging.FieldResultID, result.ID),
				logging.String(logging.FieldContentType, string(result.ContentType)),
				logging.Error(err))
			return Outcome{
				Disposition: analysis.DispositionPending,
				Method:      analysis.MethodCrossValidationUnavailable,
				Priority:    analysis.PriorityMedium,
				NeedsReview: true,
				Detail:      err.Error(),
			}, nil
		}
		return Outcome{}, err
	}
	return outcome, nil
}
