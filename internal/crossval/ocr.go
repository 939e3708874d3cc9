package crossval

import (
	"context"
	"fmt"

	"verity/internal/analysis"
	"verity/internal/engines"
	"verity/internal/textmetrics"
)

// ocrValidator re-reads the source image with an independent OCR engine and
// compares the normalized texts.
type ocrValidator struct {
	engine        engines.OCREngine
	minSimilarity float64
}

func (v *ocrValidator) ContentType() analysis.ContentType { return analysis.ContentOCR }

func (v *ocrValidator) Validate(ctx context.Context, result *analysis.Result) (Outcome, error) {
	if v.engine == nil {
		return Outcome{}, fmt.Errorf("ocr: %w", engines.ErrUnavailable)
	}

	secondary, err := v.engine.RecognizeText(ctx, result.ContentRef)
	if err != nil {
		return Outcome{}, engines.Wrap(v.engine.ID(), err)
	}

	similarity := textmetrics.Similarity(result.Value, secondary)
	if similarity >= v.minSimilarity {
		return Outcome{
			Disposition: analysis.DispositionAutoVerified,
			Method:      analysis.MethodCrossValidationAgreement,
			Detail:      fmt.Sprintf("similarity %.3f via %s", similarity, v.engine.ID()),
		}, nil
	}
	return Outcome{
		Disposition: analysis.DispositionPending,
		Method:      analysis.MethodCrossValidationMismatch,
		Priority:    analysis.PriorityHigh,
		NeedsReview: true,
		Detail:      fmt.Sprintf("similarity %.3f below %.3f via %s", similarity, v.minSimilarity, v.engine.ID()),
	}, nil
}
