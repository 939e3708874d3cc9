// Package audit defines the audit sink contract and the default sink
// implementations. Every disposition transition and review queue transition
// in the pipeline emits one event, including suppressions and rejections.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verity/internal/logging"
	"verity/internal/store"
)

// Entity types referenced by audit events.
const (
	EntityAnalysisResult = "analysis_result"
	EntityReviewItem     = "review_item"
	EntityAnalyzer       = "analyzer"
)

// Actions recorded on state transitions.
const (
	ActionSubmissionRejected = "submission_rejected"
	ActionDispositionSet     = "disposition_set"
	ActionReviewEnqueued     = "review_enqueued"
	ActionReviewClaimed      = "review_claimed"
	ActionReviewReleased     = "review_released"
	ActionReviewResolved     = "review_resolved"
	ActionCalibrationRun     = "calibration_run"
	ActionInstabilityFlagged = "instability_flagged"
)

// Event describes one auditable state transition.
type Event struct {
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	Timestamp  time.Time
	Details    map[string]any
}

// Sink receives audit events. Implementations must tolerate duplicate
// delivery; the pipeline guarantees at-least-once, not exactly-once.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// LogSink writes audit events to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a sink that emits events at INFO level.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "audit")}
}

// Record implements Sink.
func (s *LogSink) Record(_ context.Context, event Event) error {
	attrs := []logging.Attr{
		logging.String("entity_type", event.EntityType),
		logging.String("entity_id", event.EntityID),
		logging.String("action", event.Action),
	}
	if event.ActorID != "" {
		attrs = append(attrs, logging.String("actor_id", event.ActorID))
	}
	for key, value := range event.Details {
		attrs = append(attrs, logging.Any(key, value))
	}
	s.logger.Info("audit event", logging.Args(attrs...)...)
	return nil
}

// StoreSink persists audit events to the append-only audit_events table.
type StoreSink struct {
	store *store.Store
}

// NewStoreSink builds a sink backed by the verification database.
func NewStoreSink(st *store.Store) *StoreSink {
	return &StoreSink{store: st}
}

// Record implements Sink.
func (s *StoreSink) Record(ctx context.Context, event Event) error {
	var detailsJSON string
	if len(event.Details) > 0 {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		detailsJSON = string(data)
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	return s.store.InsertAuditEvent(ctx, &store.AuditRow{
		ID:          uuid.NewString(),
		EntityType:  event.EntityType,
		EntityID:    event.EntityID,
		Action:      event.Action,
		ActorID:     event.ActorID,
		DetailsJSON: detailsJSON,
		CreatedAt:   timestamp,
	})
}

// Fanout delivers each event to every sink in order and fails on the first
// hard failure, so callers in synchronous mode do not proceed past a
// transition whose audit trail could not be written.
type Fanout struct {
	sinks []Sink
}

// NewFanout combines sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Record implements Sink.
func (f *Fanout) Record(ctx context.Context, event Event) error {
	for _, sink := range f.sinks {
		if err := sink.Record(ctx, event); err != nil {
			return fmt.Errorf("audit sink: %w", err)
		}
	}
	return nil
}

// Nop discards events; used in tests that do not assert on the trail.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Event) error { return nil }
