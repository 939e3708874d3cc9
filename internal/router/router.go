// Package router partitions incoming analysis results into routing tiers by
// calibration-adjusted confidence.
package router

import (
	"fmt"
	"log/slog"

	"verity/internal/analysis"
	"verity/internal/calibration"
	"verity/internal/config"
	"verity/internal/logging"
	"verity/internal/store"
)

// Tier is the routing outcome for one result.
type Tier string

const (
	// TierAutoCandidate means confidence clears the auto-verify threshold;
	// the pipeline still cross-validates before trusting the result.
	TierAutoCandidate Tier = "auto_candidate"
	TierReviewMedium  Tier = "review_medium"
	TierReviewLow     Tier = "review_low"
	TierRejected      Tier = "rejected"
	// TierAnalyzerFailed forces human review regardless of confidence when
	// calibration has marked the producing analyzer as failed.
	TierAnalyzerFailed Tier = "analyzer_failed"
)

// Decision is the router's verdict. For review tiers the pipeline enqueues a
// review item at the given priority; for TierRejected it finalizes directly.
type Decision struct {
	Tier           Tier
	Disposition    analysis.Disposition
	Method         string
	Priority       analysis.Priority
	NeedsReview    bool
	Multiplier     float64
	AnalyzerStatus store.RunStatus
}

// Router applies calibration multipliers and threshold tiers.
type Router struct {
	thresholds config.Thresholds
	table      *calibration.Table
	logger     *slog.Logger
}

// New builds a router over the active calibration table.
func New(cfg *config.Config, table *calibration.Table, logger *slog.Logger) *Router {
	return &Router{
		thresholds: cfg.Thresholds,
		table:      table,
		logger:     logging.NewComponentLogger(logger, "router"),
	}
}

// Route computes the adjusted confidence for a result and partitions it into
// a tier. It sets result.AdjustedConfidence as a side effect. Results with a
// determined disposition are immutable and must not be re-routed.
func (r *Router) Route(result *analysis.Result) (Decision, error) {
	if result.Disposition.Determined() {
		return Decision{}, fmt.Errorf("result %s already has disposition %q", result.ID, result.Disposition)
	}

	entry := r.table.Lookup(result.AnalyzerID)
	adjusted := clamp01(result.RawConfidence * entry.Multiplier)
	result.AdjustedConfidence = adjusted

	decision := Decision{
		Multiplier:     entry.Multiplier,
		AnalyzerStatus: entry.Status,
	}

	switch {
	case entry.Status == store.RunFailed:
		decision.Tier = TierAnalyzerFailed
		decision.Disposition = analysis.DispositionPending
		decision.Method = analysis.MethodAnalyzerFailed
		decision.Priority = analysis.PriorityHigh
		decision.NeedsReview = true
	case adjusted >= r.thresholds.AutoVerify:
		decision.Tier = TierAutoCandidate
		decision.Disposition = analysis.DispositionAutoVerified
		decision.Method = analysis.MethodConfidenceThreshold
	case adjusted >= r.thresholds.ReviewMedium:
		decision.Tier = TierReviewMedium
		decision.Disposition = analysis.DispositionPending
		decision.Method = analysis.MethodConfidenceThreshold
		decision.Priority = analysis.PriorityMedium
		decision.NeedsReview = true
	case adjusted >= r.thresholds.ReviewLow:
		decision.Tier = TierReviewLow
		decision.Disposition = analysis.DispositionPending
		decision.Method = analysis.MethodConfidenceThreshold
		decision.Priority = analysis.PriorityLow
		decision.NeedsReview = true
	default:
		decision.Tier = TierRejected
		decision.Disposition = analysis.DispositionRejected
		decision.Method = analysis.MethodBelowThreshold
	}

	r.logger.Debug("routed result",
		logging.String(logging.FieldResultID, result.ID),
		logging.String(logging.FieldAnalyzerID, result.AnalyzerID),
		logging.Float64("raw_confidence", result.RawConfidence),
		logging.Float64("adjusted_confidence", adjusted),
		logging.String("tier", string(decision.Tier)))
	return decision, nil
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
