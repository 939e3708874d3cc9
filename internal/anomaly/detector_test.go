package anomaly

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"verity/internal/analysis"
	"verity/internal/audit"
	"verity/internal/config"
	"verity/internal/logging"
)

func newDetector() *Detector {
	cfg := config.Default()
	return New(&cfg, nil, logging.NewNop())
}

type captureSink struct {
	events []audit.Event
}

func (s *captureSink) Record(_ context.Context, event audit.Event) error {
	s.events = append(s.events, event)
	return nil
}

func result(t *testing.T, sub analysis.Submission) *analysis.Result {
	t.Helper()
	r, err := analysis.NewResult(sub)
	if err != nil {
		t.Fatalf("new result: %v", err)
	}
	return r
}

func hasRule(findings []Finding, rule string) bool {
	for _, f := range findings {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

func TestHighPIIDensity(t *testing.T) {
	d := newDetector()

	entities := make([]analysis.PIIEntity, 11)
	for i := range entities {
		entities[i] = analysis.PIIEntity{Type: "EMAIL", Start: i * 20, End: i*20 + 10}
	}
	flagged := result(t, analysis.Submission{
		ContentRef:    "case-007/chat.txt",
		ContentType:   analysis.ContentPII,
		AnalyzerID:    "presidio",
		RawConfidence: 0.95,
		Entities:      entities,
	})
	if findings := d.Inspect(context.Background(), flagged); !hasRule(findings, RuleHighPIIDensity) {
		t.Fatalf("expected high_pii_density, got %v", findings)
	}

	clean := result(t, analysis.Submission{
		ContentRef:    "case-007/chat.txt",
		ContentType:   analysis.ContentPII,
		AnalyzerID:    "presidio",
		RawConfidence: 0.95,
		Entities:      entities[:10],
	})
	if findings := d.Inspect(context.Background(), clean); hasRule(findings, RuleHighPIIDensity) {
		t.Fatalf("10 entities is at the limit, got %v", findings)
	}
}

func TestTranscriptionLengthAnomaly(t *testing.T) {
	d := newDetector()

	// 600 chars over 10 seconds is 60 chars/sec, past the 50 limit.
	flagged := result(t, analysis.Submission{
		ContentRef:           "case-007/call.wav",
		ContentType:          analysis.ContentTranscription,
		AnalyzerID:           "whisper-v3",
		RawConfidence:        0.95,
		Value:                strings.Repeat("x", 600),
		AudioDurationSeconds: 10,
	})
	if findings := d.Inspect(context.Background(), flagged); !hasRule(findings, RuleTranscriptionLength) {
		t.Fatalf("expected transcription_length_anomaly, got %v", findings)
	}

	normal := result(t, analysis.Submission{
		ContentRef:           "case-007/call.wav",
		ContentType:          analysis.ContentTranscription,
		AnalyzerID:           "whisper-v3",
		RawConfidence:        0.95,
		Value:                strings.Repeat("x", 120),
		AudioDurationSeconds: 10,
	})
	if findings := d.Inspect(context.Background(), normal); hasRule(findings, RuleTranscriptionLength) {
		t.Fatalf("12 chars/sec should pass, got %v", findings)
	}

	// Unknown duration: the rule cannot apply.
	unknown := result(t, analysis.Submission{
		ContentRef:    "case-007/call.wav",
		ContentType:   analysis.ContentTranscription,
		AnalyzerID:    "whisper-v3",
		RawConfidence: 0.95,
		Value:         strings.Repeat("x", 600),
	})
	if findings := d.Inspect(context.Background(), unknown); hasRule(findings, RuleTranscriptionLength) {
		t.Fatalf("no duration means no rate, got %v", findings)
	}
}

func TestOCRGibberish(t *testing.T) {
	d := newDetector()

	gibberish := result(t, analysis.Submission{
		ContentRef:    "case-007/scan.png",
		ContentType:   analysis.ContentOCR,
		AnalyzerID:    "tesseract",
		RawConfidence: 0.95,
		Value:         "xjq zzvw qqpl mmrk ttwx bbnv",
	})
	if findings := d.Inspect(context.Background(), gibberish); !hasRule(findings, RuleOCRGibberish) {
		t.Fatalf("expected ocr_gibberish, got %v", findings)
	}

	readable := result(t, analysis.Submission{
		ContentRef:    "case-007/scan.png",
		ContentType:   analysis.ContentOCR,
		AnalyzerID:    "tesseract",
		RawConfidence: 0.95,
		Value:         "the payment was sent to the account on time",
	})
	if findings := d.Inspect(context.Background(), readable); hasRule(findings, RuleOCRGibberish) {
		t.Fatalf("readable text flagged, got %v", findings)
	}

	empty := result(t, analysis.Submission{
		ContentRef:    "case-007/scan.png",
		ContentType:   analysis.ContentOCR,
		AnalyzerID:    "tesseract",
		RawConfidence: 0.95,
	})
	if findings := d.Inspect(context.Background(), empty); hasRule(findings, RuleOCRGibberish) {
		t.Fatalf("empty value flagged, got %v", findings)
	}
}

func TestConfidenceInstabilityNeverFlagsResult(t *testing.T) {
	cfg := config.Default()
	sink := &captureSink{}
	d := New(&cfg, sink, logging.NewNop())

	// Alternate extremes to blow past the stddev limit once the window fills.
	for i := 0; i < 40; i++ {
		confidence := 0.05
		if i%2 == 0 {
			confidence = 0.95
		}
		r := result(t, analysis.Submission{
			ContentRef:    fmt.Sprintf("case-007/img-%d.png", i),
			ContentType:   analysis.ContentOCR,
			AnalyzerID:    "jittery",
			RawConfidence: confidence,
			Value:         "the payment was sent",
		})
		if findings := d.Inspect(context.Background(), r); hasRule(findings, RuleConfidenceInstability) {
			t.Fatalf("instability must not flag individual results, got %v", findings)
		}
	}

	// The episode reaches the analyzer's audit trail exactly once while the
	// window stays unstable.
	if len(sink.events) != 1 {
		t.Fatalf("expected one instability event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.EntityType != audit.EntityAnalyzer || event.EntityID != "jittery" {
		t.Fatalf("event scoped to %s %s, want analyzer jittery", event.EntityType, event.EntityID)
	}
	if event.Action != audit.ActionInstabilityFlagged {
		t.Fatalf("action = %q", event.Action)
	}
	if event.Details["rule"] != RuleConfidenceInstability {
		t.Fatalf("details = %+v", event.Details)
	}
}
