// Package api defines transport-friendly views of verification state shared
// by the CLI renderers and JSON output.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// AnalysisResult describes a verified analyzer output.
type AnalysisResult struct {
	ID                 string      `json:"id"`
	ContentRef         string      `json:"contentRef"`
	ContentType        string      `json:"contentType"`
	AnalyzerID         string      `json:"analyzerId"`
	Value              string      `json:"value,omitempty"`
	Entities           []PIIEntity `json:"entities,omitempty"`
	RawConfidence      float64     `json:"rawConfidence"`
	AdjustedConfidence float64     `json:"adjustedConfidence"`
	Disposition        string      `json:"disposition"`
	VerificationMethod string      `json:"verificationMethod,omitempty"`
	CorrectedValue     string      `json:"correctedValue,omitempty"`
	CreatedAt          string      `json:"createdAt,omitempty"`
	UpdatedAt          string      `json:"updatedAt,omitempty"`
}

// PIIEntity is one detected entity within a PII result.
type PIIEntity struct {
	Type        string   `json:"type"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Text        string   `json:"text,omitempty"`
	DetectedBy  []string `json:"detectedBy,omitempty"`
	Disposition string   `json:"disposition,omitempty"`
}

// ReviewItem describes a review queue entry.
type ReviewItem struct {
	ID             int64  `json:"id"`
	ResultID       string `json:"resultId"`
	Priority       int    `json:"priority"`
	PriorityLabel  string `json:"priorityLabel"`
	Reason         string `json:"reason,omitempty"`
	Status         string `json:"status"`
	ClaimedBy      string `json:"claimedBy,omitempty"`
	ClaimedAt      string `json:"claimedAt,omitempty"`
	Decision       string `json:"decision,omitempty"`
	CorrectedValue string `json:"correctedValue,omitempty"`
	ResolvedBy     string `json:"resolvedBy,omitempty"`
	ResolvedAt     string `json:"resolvedAt,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// ReviewStats summarizes review queue health.
type ReviewStats struct {
	Pending              int     `json:"pending"`
	Claimed              int     `json:"claimed"`
	Resolved             int     `json:"resolved"`
	Corrected            int     `json:"corrected"`
	Rejected             int     `json:"rejected"`
	CorrectionRate       float64 `json:"correctionRate"`
	FalsePositiveRate    float64 `json:"falsePositiveRate"`
	AvgReviewLatencySecs float64 `json:"avgReviewLatencySeconds"`
}

// CalibrationRun describes one analyzer self-test.
type CalibrationRun struct {
	ID          int64    `json:"id"`
	AnalyzerID  string   `json:"analyzerId"`
	SampleCount int      `json:"sampleCount"`
	Accuracy    float64  `json:"accuracy"`
	F1Score     *float64 `json:"f1Score,omitempty"`
	Status      string   `json:"status"`
	Multiplier  float64  `json:"multiplier"`
	RanAt       string   `json:"ranAt,omitempty"`
}

// AuditEvent describes one audit trail entry.
type AuditEvent struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Action     string `json:"action"`
	ActorID    string `json:"actorId,omitempty"`
	Details    string `json:"details,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}
