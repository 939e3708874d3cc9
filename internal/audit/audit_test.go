package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"verity/internal/logging"
	"verity/internal/testsupport"
)

func TestStoreSinkPersistsEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	sink := NewStoreSink(st)

	event := Event{
		EntityType: EntityReviewItem,
		EntityID:   "42",
		Action:     ActionReviewClaimed,
		ActorID:    "reviewer-1",
		Timestamp:  time.Now().UTC(),
		Details:    map[string]any{"priority": 1},
	}
	if err := sink.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}

	rows, err := st.AuditEventsForEntity(context.Background(), EntityReviewItem, "42")
	if err != nil {
		t.Fatalf("load trail: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rows))
	}
	if rows[0].Action != ActionReviewClaimed || rows[0].ActorID != "reviewer-1" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(rows[0].DetailsJSON), &details); err != nil {
		t.Fatalf("details not json: %v", err)
	}
	if details["priority"] != float64(1) {
		t.Fatalf("details = %v", details)
	}
}

func TestFanoutStopsOnFirstFailure(t *testing.T) {
	boom := errors.New("sink down")
	failing := sinkFunc(func(context.Context, Event) error { return boom })

	var delivered int
	counting := sinkFunc(func(context.Context, Event) error {
		delivered++
		return nil
	})

	fanout := NewFanout(counting, failing, counting)
	err := fanout.Record(context.Background(), Event{Action: ActionDispositionSet})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped sink error, got %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected delivery to stop after failure, delivered=%d", delivered)
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	sink := NewLogSink(logging.NewNop())
	err := sink.Record(context.Background(), Event{
		EntityType: EntityAnalysisResult,
		EntityID:   "abc",
		Action:     ActionDispositionSet,
		Details:    map[string]any{"disposition": "auto_verified"},
	})
	if err != nil {
		t.Fatalf("log sink returned error: %v", err)
	}
}

type sinkFunc func(context.Context, Event) error

func (f sinkFunc) Record(ctx context.Context, event Event) error { return f(ctx, event) }
