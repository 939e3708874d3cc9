package crossval

import (
	"context"
	"fmt"

	"verity/internal/analysis"
	"verity/internal/engines"
)

// piiValidator corroborates detected entities across independent detectors.
// An entity is verified only when enough detectors report the same type over
// the same span; the primary analyzer counts as one detector.
type piiValidator struct {
	detectors    []engines.PIIDetector
	minDetectors int
}

func (v *piiValidator) ContentType() analysis.ContentType { return analysis.ContentPII }

func (v *piiValidator) Validate(ctx context.Context, result *analysis.Result) (Outcome, error) {
	if len(v.detectors) == 0 {
		return Outcome{}, fmt.Errorf("pii: %w", engines.ErrUnavailable)
	}

	// Span -> secondary detector IDs that reported it.
	confirmations := make(map[string][]string)
	for _, detector := range v.detectors {
		entities, err := detector.DetectEntities(ctx, result.Value)
		if err != nil {
			return Outcome{}, engines.Wrap(detector.ID(), err)
		}
		for _, entity := range entities {
			span := entity.Span()
			confirmations[span] = append(confirmations[span], detector.ID())
		}
	}

	primarySpans := make(map[string]bool, len(result.Entities))
	for i := range result.Entities {
		entity := &result.Entities[i]
		span := entity.Span()
		primarySpans[span] = true

		entity.DetectedBy = append([]string{result.AnalyzerID}, confirmations[span]...)
		if len(entity.DetectedBy) >= v.minDetectors {
			entity.Disposition = analysis.DispositionAutoVerified
		} else {
			entity.Disposition = analysis.DispositionPending
		}
	}

	// Entities the secondaries agree on but the primary missed count as a
	// mismatch: the primary's picture of the content is incomplete.
	missed := 0
	for span, detectors := range confirmations {
		if !primarySpans[span] && len(detectors) >= v.minDetectors {
			missed++
		}
	}
	if missed > 0 {
		return Outcome{
			Disposition: analysis.DispositionPending,
			Method:      analysis.MethodCrossValidationMismatch,
			Priority:    analysis.PriorityHigh,
			NeedsReview: true,
			Detail:      fmt.Sprintf("%d corroborated entities missing from result", missed),
		}, nil
	}

	switch analysis.WeakestEntityDisposition(result.Entities) {
	case analysis.DispositionAutoVerified:
		return Outcome{
			Disposition: analysis.DispositionAutoVerified,
			Method:      analysis.MethodCrossValidationAgreement,
		}, nil
	default:
		return Outcome{
			Disposition: analysis.DispositionPending,
			Method:      analysis.MethodSingleDetector,
			Priority:    analysis.PriorityMedium,
			NeedsReview: true,
			Detail:      "one or more entities lack independent confirmation",
		}, nil
	}
}
