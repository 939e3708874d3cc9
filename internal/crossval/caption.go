package crossval

import (
	"context"

	"verity/internal/analysis"
)

// captionValidator enforces the caption policy. Generated captions are
// subjective descriptions with no independent signal to compare against, so
// by default they always go to a human regardless of confidence.
type captionValidator struct {
	autoVerify bool
}

func (v *captionValidator) ContentType() analysis.ContentType { return analysis.ContentCaption }

func (v *captionValidator) Validate(_ context.Context, _ *analysis.Result) (Outcome, error) {
	if v.autoVerify {
		return Outcome{
			Disposition: analysis.DispositionAutoVerified,
			Method:      analysis.MethodConfidenceThreshold,
		}, nil
	}
	return Outcome{
		Disposition: analysis.DispositionPending,
		Method:      analysis.MethodCaptionPolicy,
		Priority:    analysis.PriorityLow,
		NeedsReview: true,
		Detail:      "captions require human confirmation",
	}, nil
}
