// Package pipeline orchestrates the verification flow for one submission:
// validate, route by adjusted confidence, screen for anomalies,
// cross-validate auto candidates, then commit the finalized result and its
// review item in one transaction.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"verity/internal/analysis"
	"verity/internal/anomaly"
	"verity/internal/audit"
	"verity/internal/crossval"
	"verity/internal/logging"
	"verity/internal/router"
	"verity/internal/store"
)

// Pipeline wires the decision stages together. Review items for pending
// results are created inside the commit transaction rather than through the
// review manager, so a crash between the two writes cannot strand a result.
type Pipeline struct {
	store    *store.Store
	router   *router.Router
	detector *anomaly.Detector
	crossval *crossval.Registry
	sink     audit.Sink
	logger   *slog.Logger
}

// New assembles a pipeline.
func New(st *store.Store, rt *router.Router, detector *anomaly.Detector, registry *crossval.Registry, sink audit.Sink, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:    st,
		router:   rt,
		detector: detector,
		crossval: registry,
		sink:     sink,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Submit runs one analyzer submission through the full verification flow.
// On success the returned result has a determined disposition and is
// persisted together with any review item. On failure nothing is persisted
// except the rejection audit event for invalid submissions.
func (p *Pipeline) Submit(ctx context.Context, sub analysis.Submission) (*analysis.Result, error) {
	result, err := analysis.NewResult(sub)
	if err != nil {
		if auditErr := p.sink.Record(ctx, audit.Event{
			EntityType: audit.EntityAnalysisResult,
			EntityID:   sub.ContentRef,
			Action:     audit.ActionSubmissionRejected,
			Details: map[string]any{
				"analyzer_id": sub.AnalyzerID,
				"error":       err.Error(),
			},
		}); auditErr != nil {
			return nil, auditErr
		}
		p.logger.Warn("submission rejected",
			logging.String(logging.FieldContentRef, sub.ContentRef),
			logging.String(logging.FieldAnalyzerID, sub.AnalyzerID),
			logging.Error(err))
		return nil, err
	}

	decision, err := p.router.Route(result)
	if err != nil {
		return nil, err
	}

	disposition := decision.Disposition
	method := decision.Method
	priority := decision.Priority
	needsReview := decision.NeedsReview

	// Anomaly rules run on every result so confidence windows stay fed.
	// Findings downgrade whatever they can: auto candidates lose automated
	// trust and review-tier results escalate to high priority. Rejections
	// and failed-analyzer routing already sit at the bottom and stay put.
	findings := p.detector.Inspect(ctx, result)
	switch {
	case len(findings) > 0 && (decision.Tier == router.TierAutoCandidate ||
		decision.Tier == router.TierReviewMedium ||
		decision.Tier == router.TierReviewLow):
		disposition = analysis.DispositionPending
		method = analysis.AnomalyMethod(findings[0].Rule)
		priority = analysis.PriorityHigh
		needsReview = true
	case decision.Tier == router.TierAutoCandidate:
		outcome, err := p.crossval.Validate(ctx, result)
		if err != nil {
			return nil, fmt.Errorf("cross-validate result %s: %w", result.ID, err)
		}
		disposition = outcome.Disposition
		method = outcome.Method
		priority = outcome.Priority
		needsReview = outcome.NeedsReview
	}

	result.Disposition = disposition
	result.VerificationMethod = method

	var seed *store.ReviewSeed
	if needsReview {
		seed = &store.ReviewSeed{Priority: priority, Reason: method}
	}

	itemID, err := p.store.CommitResult(ctx, result, seed)
	if err != nil {
		return nil, fmt.Errorf("commit result: %w", err)
	}

	if err := p.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityAnalysisResult,
		EntityID:   result.ID,
		Action:     audit.ActionDispositionSet,
		Details: map[string]any{
			"content_ref":         result.ContentRef,
			"content_type":        string(result.ContentType),
			"analyzer_id":         result.AnalyzerID,
			"disposition":         string(result.Disposition),
			"verification_method": result.VerificationMethod,
			"raw_confidence":      result.RawConfidence,
			"adjusted_confidence": result.AdjustedConfidence,
			"tier":                string(decision.Tier),
		},
	}); err != nil {
		return nil, err
	}
	if itemID != 0 {
		if err := p.sink.Record(ctx, audit.Event{
			EntityType: audit.EntityReviewItem,
			EntityID:   fmt.Sprintf("%d", itemID),
			Action:     audit.ActionReviewEnqueued,
			Details: map[string]any{
				"result_id": result.ID,
				"priority":  int(priority),
				"reason":    method,
			},
		}); err != nil {
			return nil, err
		}
	}

	p.logger.Info("result finalized",
		logging.String(logging.FieldResultID, result.ID),
		logging.String(logging.FieldContentRef, result.ContentRef),
		logging.String(logging.FieldContentType, string(result.ContentType)),
		logging.String(logging.FieldDisposition, string(result.Disposition)),
		logging.String(logging.FieldMethod, result.VerificationMethod))
	return result, nil
}
