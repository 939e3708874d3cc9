package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrValidation marks malformed submissions. A validation failure rejects the
// single submission and never affects other results.
var ErrValidation = errors.New("validation error")

// ContentType identifies which analyzer family produced a result and which
// cross-validation strategy applies to it.
type ContentType string

const (
	ContentTranscription ContentType = "transcription"
	ContentOCR           ContentType = "ocr"
	ContentPII           ContentType = "pii"
	ContentCaption       ContentType = "caption"
)

var allContentTypes = []ContentType{
	ContentTranscription,
	ContentOCR,
	ContentPII,
	ContentCaption,
}

var contentTypeSet = func() map[ContentType]struct{} {
	set := make(map[ContentType]struct{}, len(allContentTypes))
	for _, ct := range allContentTypes {
		set[ct] = struct{}{}
	}
	return set
}()

// AllContentTypes returns the ordered list of known content types.
func AllContentTypes() []ContentType {
	cp := make([]ContentType, len(allContentTypes))
	copy(cp, allContentTypes)
	return cp
}

// ParseContentType converts a string into a known ContentType.
func ParseContentType(value string) (ContentType, bool) {
	normalized := ContentType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := contentTypeSet[normalized]
	return normalized, ok
}

// Disposition is the trust classification assigned to an analysis result.
type Disposition string

const (
	// DispositionUndetermined is the state before the routing pipeline runs.
	DispositionUndetermined  Disposition = ""
	DispositionAutoVerified  Disposition = "auto_verified"
	DispositionPending       Disposition = "pending_review"
	DispositionHumanVerified Disposition = "human_verified"
	DispositionRejected      Disposition = "rejected"
)

// Determined reports whether the routing pipeline has assigned a disposition.
func (d Disposition) Determined() bool {
	return d != DispositionUndetermined
}

// Trusted reports whether a result may be surfaced as evidence.
func (d Disposition) Trusted() bool {
	return d == DispositionAutoVerified || d == DispositionHumanVerified
}

// Verification method tags record why a disposition was reached.
const (
	MethodConfidenceThreshold        = "confidence_threshold"
	MethodBelowThreshold             = "below_threshold"
	MethodCrossValidationAgreement   = "cross_validation_agreement"
	MethodCrossValidationMismatch    = "cross_validation_mismatch"
	MethodCrossValidationUnavailable = "cross_validation_unavailable"
	MethodSingleDetector             = "single_detector"
	MethodHighWER                    = "high_wer"
	MethodCaptionPolicy              = "caption_policy"
	MethodHumanReview                = "human_review"
	MethodAnalyzerFailed             = "analyzer_failed"
)

// AnomalyMethod builds the verification method tag for a fired anomaly rule.
func AnomalyMethod(rule string) string {
	return "anomaly_flag:" + rule
}

// Priority orders review queue items; lower is more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// PIIEntity is one detected entity inside a PII result. Cross-validation
// annotates each entity with the detectors that confirmed it and a
// per-entity disposition; the overall result disposition is the weakest of
// its entities.
type PIIEntity struct {
	Type        string      `json:"type"`
	Start       int         `json:"start"`
	End         int         `json:"end"`
	Text        string      `json:"text"`
	DetectedBy  []string    `json:"detected_by,omitempty"`
	Disposition Disposition `json:"disposition,omitempty"`
}

// Span returns a stable identity for entity agreement checks: two detectors
// agree when they report the same type over the same span.
func (e PIIEntity) Span() string {
	return fmt.Sprintf("%s:%d:%d", strings.ToUpper(e.Type), e.Start, e.End)
}

// Submission is the raw analyzer output handed to the ingestion API.
type Submission struct {
	ContentRef           string
	ContentType          ContentType
	AnalyzerID           string
	Value                string
	Entities             []PIIEntity
	RawConfidence        float64
	AudioDurationSeconds float64
}

// Result is one normalized output from one analyzer on one piece of content.
// It is immutable after finalization except for the human-review transition,
// which may set Disposition, VerificationMethod, and CorrectedValue exactly
// once more.
type Result struct {
	ID                   string
	ContentRef           string
	ContentType          ContentType
	AnalyzerID           string
	Value                string
	Entities             []PIIEntity
	RawConfidence        float64
	AdjustedConfidence   float64
	AudioDurationSeconds float64
	Disposition          Disposition
	VerificationMethod   string
	CorrectedValue       string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewResult validates a submission and normalizes it into a Result with an
// assigned identifier. The disposition starts undetermined.
func NewResult(sub Submission) (*Result, error) {
	if strings.TrimSpace(sub.ContentRef) == "" {
		return nil, fmt.Errorf("%w: content ref required", ErrValidation)
	}
	if _, ok := contentTypeSet[sub.ContentType]; !ok {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrValidation, sub.ContentType)
	}
	if strings.TrimSpace(sub.AnalyzerID) == "" {
		return nil, fmt.Errorf("%w: analyzer id required", ErrValidation)
	}
	if sub.RawConfidence < 0 || sub.RawConfidence > 1 {
		return nil, fmt.Errorf("%w: raw confidence %v outside [0,1]", ErrValidation, sub.RawConfidence)
	}
	if sub.AudioDurationSeconds < 0 {
		return nil, fmt.Errorf("%w: negative audio duration", ErrValidation)
	}

	now := time.Now().UTC()
	return &Result{
		ID:                   uuid.NewString(),
		ContentRef:           strings.TrimSpace(sub.ContentRef),
		ContentType:          sub.ContentType,
		AnalyzerID:           strings.TrimSpace(sub.AnalyzerID),
		Value:                sub.Value,
		Entities:             append([]PIIEntity(nil), sub.Entities...),
		RawConfidence:        sub.RawConfidence,
		AdjustedConfidence:   sub.RawConfidence,
		AudioDurationSeconds: sub.AudioDurationSeconds,
		Disposition:          DispositionUndetermined,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// WeakestEntityDisposition returns the least-trusted disposition across the
// result's entities, or AUTO_VERIFIED when every entity is verified.
func WeakestEntityDisposition(entities []PIIEntity) Disposition {
	weakest := DispositionAutoVerified
	for _, entity := range entities {
		switch entity.Disposition {
		case DispositionRejected:
			return DispositionRejected
		case DispositionPending, DispositionUndetermined:
			weakest = DispositionPending
		}
	}
	return weakest
}
