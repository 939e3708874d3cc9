package pipeline

import (
	"context"
	"errors"
	"testing"

	"verity/internal/analysis"
	"verity/internal/anomaly"
	"verity/internal/audit"
	"verity/internal/calibration"
	"verity/internal/config"
	"verity/internal/crossval"
	"verity/internal/logging"
	"verity/internal/router"
	"verity/internal/store"
	"verity/internal/testsupport"
)

type echoOCR struct {
	text  string
	calls int
}

func (e *echoOCR) ID() string { return "easyocr" }
func (e *echoOCR) RecognizeText(context.Context, string) (string, error) {
	e.calls++
	return e.text, nil
}

type env struct {
	pipeline *Pipeline
	store    *store.Store
	table    *calibration.Table
	ocr      *echoOCR
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	table := calibration.NewTable()
	sink := audit.NewStoreSink(st)
	ocr := &echoOCR{}

	registry := crossval.NewRegistry(cfg, crossval.Engines{OCR: ocr}, logging.NewNop())
	rt := router.New(cfg, table, logging.NewNop())
	detector := anomaly.New(cfg, sink, logging.NewNop())

	return &env{
		pipeline: New(st, rt, detector, registry, sink, logging.NewNop()),
		store:    st,
		table:    table,
		ocr:      ocr,
	}
}

func ocrSubmission(confidence float64, value string) analysis.Submission {
	return analysis.Submission{
		ContentRef:    "case-200/receipt.png",
		ContentType:   analysis.ContentOCR,
		AnalyzerID:    "tesseract",
		Value:         value,
		RawConfidence: confidence,
	}
}

func openItemFor(t *testing.T, st *store.Store, resultID string) *store.ReviewItem {
	t.Helper()
	item, err := st.OpenReviewItemForResult(context.Background(), resultID)
	if err != nil {
		t.Fatalf("open item: %v", err)
	}
	return item
}

func TestSubmitAutoVerifiesCorroboratedResult(t *testing.T) {
	e := newEnv(t)
	e.ocr.text = "total due $42.00"

	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.95, "total due $42.00"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionAutoVerified {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if result.VerificationMethod != analysis.MethodCrossValidationAgreement {
		t.Fatalf("method = %q", result.VerificationMethod)
	}
	if e.ocr.calls != 1 {
		t.Fatalf("ocr calls = %d", e.ocr.calls)
	}

	// Persisted, trusted, no review item.
	stored, err := e.store.GetResult(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if !stored.Disposition.Trusted() {
		t.Fatalf("stored disposition = %v", stored.Disposition)
	}
	if _, err := e.store.OpenReviewItemForResult(context.Background(), result.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no review item, got %v", err)
	}

	trail, err := e.store.AuditEventsForEntity(context.Background(), audit.EntityAnalysisResult, result.ID)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != audit.ActionDispositionSet {
		t.Fatalf("trail = %+v", trail)
	}
}

func TestSubmitCrossValidationMismatchForcesReview(t *testing.T) {
	e := newEnv(t)
	e.ocr.text = "Pas5word obc l23"

	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.95, "Password: abc123"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionPending {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if result.VerificationMethod != analysis.MethodCrossValidationMismatch {
		t.Fatalf("method = %q", result.VerificationMethod)
	}

	item := openItemFor(t, e.store, result.ID)
	if item.Priority != analysis.PriorityHigh {
		t.Fatalf("priority = %v, want high", item.Priority)
	}
}

func TestSubmitMediumConfidenceSkipsCrossValidation(t *testing.T) {
	e := newEnv(t)

	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.70, "partial text"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionPending {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if result.VerificationMethod != analysis.MethodConfidenceThreshold {
		t.Fatalf("method = %q", result.VerificationMethod)
	}
	if e.ocr.calls != 0 {
		t.Fatalf("cross-validation should not run below the auto tier, calls = %d", e.ocr.calls)
	}

	item := openItemFor(t, e.store, result.ID)
	if item.Priority != analysis.PriorityMedium {
		t.Fatalf("priority = %v, want medium", item.Priority)
	}
}

func TestSubmitLowConfidenceIsRejectedWithoutReview(t *testing.T) {
	e := newEnv(t)

	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.30, "noise"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionRejected {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if _, err := e.store.OpenReviewItemForResult(context.Background(), result.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rejected results must not queue review: %v", err)
	}
}

func TestSubmitAnomalyVetoesAutoVerification(t *testing.T) {
	e := newEnv(t)
	e.ocr.text = "xjq zzvw qqpl mmrk"

	// High confidence gibberish: the anomaly veto fires before any engine call.
	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.95, "xjq zzvw qqpl mmrk"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionPending {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if result.VerificationMethod != analysis.AnomalyMethod(anomaly.RuleOCRGibberish) {
		t.Fatalf("method = %q", result.VerificationMethod)
	}
	if e.ocr.calls != 0 {
		t.Fatalf("anomalous results must not be cross-validated, calls = %d", e.ocr.calls)
	}

	item := openItemFor(t, e.store, result.ID)
	if item.Priority != analysis.PriorityHigh {
		t.Fatalf("priority = %v, want high", item.Priority)
	}
}

func TestSubmitAnomalyEscalatesReviewTierPriority(t *testing.T) {
	e := newEnv(t)

	entities := make([]analysis.PIIEntity, 20)
	for i := range entities {
		entities[i] = analysis.PIIEntity{Type: "EMAIL", Start: i * 30, End: i*30 + 12}
	}

	// Medium confidence already queues for review, but the entity flood
	// escalates it to high priority under the anomaly method.
	result, err := e.pipeline.Submit(context.Background(), analysis.Submission{
		ContentRef:    "case-201/chat.txt",
		ContentType:   analysis.ContentPII,
		AnalyzerID:    "presidio",
		RawConfidence: 0.65,
		Entities:      entities,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionPending {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if result.VerificationMethod != analysis.AnomalyMethod(anomaly.RuleHighPIIDensity) {
		t.Fatalf("method = %q", result.VerificationMethod)
	}

	item := openItemFor(t, e.store, result.ID)
	if item.Priority != analysis.PriorityHigh {
		t.Fatalf("priority = %v, want high", item.Priority)
	}
}

func TestSubmitFailedAnalyzerForcesReview(t *testing.T) {
	e := newEnv(t)
	e.table.Replace(map[string]calibration.Entry{
		"tesseract": {Multiplier: 0.0, Status: store.RunFailed},
	})

	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.99, "clear text"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionPending {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	if result.VerificationMethod != analysis.MethodAnalyzerFailed {
		t.Fatalf("method = %q", result.VerificationMethod)
	}
	if e.ocr.calls != 0 {
		t.Fatalf("failed analyzers skip cross-validation, calls = %d", e.ocr.calls)
	}

	item := openItemFor(t, e.store, result.ID)
	if item.Priority != analysis.PriorityHigh {
		t.Fatalf("priority = %v, want high", item.Priority)
	}
}

func TestSubmitDegradedAnalyzerDropsTier(t *testing.T) {
	e := newEnv(t)
	e.table.Replace(map[string]calibration.Entry{
		"tesseract": {Multiplier: 0.8, Status: store.RunDegraded},
	})

	// 0.90 raw adjusts to 0.72: medium review instead of auto.
	result, err := e.pipeline.Submit(context.Background(), ocrSubmission(0.90, "clear text"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Disposition != analysis.DispositionPending {
		t.Fatalf("disposition = %v", result.Disposition)
	}
	item := openItemFor(t, e.store, result.ID)
	if item.Priority != analysis.PriorityMedium {
		t.Fatalf("priority = %v, want medium", item.Priority)
	}
}

func TestSubmitInvalidSubmissionPersistsNothing(t *testing.T) {
	e := newEnv(t)

	_, err := e.pipeline.Submit(context.Background(), analysis.Submission{
		ContentRef:    "case-200/receipt.png",
		ContentType:   "hologram",
		AnalyzerID:    "tesseract",
		RawConfidence: 0.9,
	})
	if !errors.Is(err, analysis.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	results, err := e.store.ResultsByContentRef(context.Background(), "case-200/receipt.png")
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("invalid submission persisted: %+v", results)
	}

	trail, err := e.store.AuditEventsForEntity(context.Background(), audit.EntityAnalysisResult, "case-200/receipt.png")
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != audit.ActionSubmissionRejected {
		t.Fatalf("trail = %+v", trail)
	}
}

func TestPoolProcessesSubmissions(t *testing.T) {
	e := newEnv(t)
	e.ocr.text = "total due $42.00"

	cfg := config.Default()
	cfg.Workers.Count = 2
	pool := NewPool(&cfg, e.pipeline, logging.NewNop())

	refs := []string{"case-300/a.png", "case-300/b.png", "case-300/c.png"}
	for _, ref := range refs {
		sub := ocrSubmission(0.95, "total due $42.00")
		sub.ContentRef = ref
		if err := pool.Enqueue(context.Background(), sub); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pool.Close()

	for _, ref := range refs {
		results, err := e.store.ResultsByContentRef(context.Background(), ref)
		if err != nil {
			t.Fatalf("query results: %v", err)
		}
		if len(results) != 1 || results[0].Disposition != analysis.DispositionAutoVerified {
			t.Fatalf("ref %s results = %+v", ref, results)
		}
	}

	if err := pool.Enqueue(context.Background(), ocrSubmission(0.95, "x")); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("enqueue after close: %v", err)
	}
}
