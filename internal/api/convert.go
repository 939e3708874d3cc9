package api

import (
	"time"

	"verity/internal/analysis"
	"verity/internal/store"
)

// FromResult converts an analysis result to its API representation.
func FromResult(result *analysis.Result) AnalysisResult {
	if result == nil {
		return AnalysisResult{}
	}
	dto := AnalysisResult{
		ID:                 result.ID,
		ContentRef:         result.ContentRef,
		ContentType:        string(result.ContentType),
		AnalyzerID:         result.AnalyzerID,
		Value:              result.Value,
		RawConfidence:      result.RawConfidence,
		AdjustedConfidence: result.AdjustedConfidence,
		Disposition:        string(result.Disposition),
		VerificationMethod: result.VerificationMethod,
		CorrectedValue:     result.CorrectedValue,
		CreatedAt:          formatTime(result.CreatedAt),
		UpdatedAt:          formatTime(result.UpdatedAt),
	}
	for _, entity := range result.Entities {
		dto.Entities = append(dto.Entities, PIIEntity{
			Type:        entity.Type,
			Start:       entity.Start,
			End:         entity.End,
			Text:        entity.Text,
			DetectedBy:  entity.DetectedBy,
			Disposition: string(entity.Disposition),
		})
	}
	return dto
}

// FromReviewItem converts a review queue record to its API representation.
func FromReviewItem(item *store.ReviewItem) ReviewItem {
	if item == nil {
		return ReviewItem{}
	}
	dto := ReviewItem{
		ID:             item.ID,
		ResultID:       item.ResultID,
		Priority:       int(item.Priority),
		PriorityLabel:  PriorityLabel(item.Priority),
		Reason:         item.Reason,
		Status:         string(item.Status),
		ClaimedBy:      item.ClaimedBy,
		Decision:       string(item.Decision),
		CorrectedValue: item.CorrectedValue,
		ResolvedBy:     item.ResolvedBy,
		CreatedAt:      formatTime(item.CreatedAt),
	}
	if item.ClaimedAt != nil {
		dto.ClaimedAt = formatTime(*item.ClaimedAt)
	}
	if item.ResolvedAt != nil {
		dto.ResolvedAt = formatTime(*item.ResolvedAt)
	}
	return dto
}

// FromReviewStats converts queue statistics to their API representation.
func FromReviewStats(stats store.ReviewStats) ReviewStats {
	return ReviewStats{
		Pending:              stats.Pending,
		Claimed:              stats.Claimed,
		Resolved:             stats.Resolved,
		Corrected:            stats.Corrected,
		Rejected:             stats.Rejected,
		CorrectionRate:       stats.CorrectionRate,
		FalsePositiveRate:    stats.FalsePositiveRate,
		AvgReviewLatencySecs: stats.AvgReviewLatency.Seconds(),
	}
}

// FromCalibrationRun converts a calibration run to its API representation.
func FromCalibrationRun(run *store.CalibrationRun) CalibrationRun {
	if run == nil {
		return CalibrationRun{}
	}
	dto := CalibrationRun{
		ID:          run.ID,
		AnalyzerID:  run.AnalyzerID,
		SampleCount: run.SampleCount,
		Accuracy:    run.Accuracy,
		Status:      string(run.Status),
		Multiplier:  run.Multiplier,
		RanAt:       formatTime(run.RanAt),
	}
	if run.HasF1 {
		f1 := run.F1Score
		dto.F1Score = &f1
	}
	return dto
}

// FromAuditRow converts an audit row to its API representation.
func FromAuditRow(row *store.AuditRow) AuditEvent {
	if row == nil {
		return AuditEvent{}
	}
	return AuditEvent{
		ID:         row.ID,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Action:     row.Action,
		ActorID:    row.ActorID,
		Details:    row.DetailsJSON,
		CreatedAt:  formatTime(row.CreatedAt),
	}
}

// PriorityLabel renders a queue priority for humans.
func PriorityLabel(priority analysis.Priority) string {
	switch priority {
	case analysis.PriorityHigh:
		return "high"
	case analysis.PriorityMedium:
		return "medium"
	case analysis.PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
