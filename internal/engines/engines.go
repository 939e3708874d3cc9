// Package engines defines the contracts for the secondary analysis engines
// used during cross-validation. The pipeline depends only on these
// interfaces; concrete adapters for external services register at daemon
// startup.
package engines

import (
	"context"

	"verity/internal/analysis"
)

// OCREngine extracts text from an image referenced by content ref.
type OCREngine interface {
	ID() string
	RecognizeText(ctx context.Context, contentRef string) (string, error)
}

// Transcriber converts an audio segment to text. Offset and duration select
// the sample to transcribe, in seconds from the start of the content.
type Transcriber interface {
	ID() string
	TranscribeSegment(ctx context.Context, contentRef string, offsetSeconds, durationSeconds float64) (string, error)
}

// PIIDetector finds personally identifiable entities in text.
type PIIDetector interface {
	ID() string
	DetectEntities(ctx context.Context, text string) ([]analysis.PIIEntity, error)
}
