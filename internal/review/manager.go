// Package review manages the human review queue: claiming with leases,
// releasing, and resolving items, with every transition audited.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"verity/internal/analysis"
	"verity/internal/audit"
	"verity/internal/config"
	"verity/internal/logging"
	"verity/internal/store"
)

// ErrInvalidDecision marks resolve calls with an unknown decision or a
// corrected decision without a corrected value.
var ErrInvalidDecision = errors.New("invalid decision")

// Manager applies queue policy on top of the store's state machine.
type Manager struct {
	store  *store.Store
	sink   audit.Sink
	lease  time.Duration
	logger *slog.Logger
}

// NewManager builds a manager with the configured claim lease.
func NewManager(cfg *config.Config, st *store.Store, sink audit.Sink, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		sink:   sink,
		lease:  time.Duration(cfg.Review.ClaimLeaseMinutes) * time.Minute,
		logger: logging.NewComponentLogger(logger, "review"),
	}
}

// Lease returns the active claim lease duration.
func (m *Manager) Lease() time.Duration {
	return m.lease
}

// Enqueue adds a result to the queue. Re-enqueueing a result with an open
// item returns the existing item unchanged.
func (m *Manager) Enqueue(ctx context.Context, resultID string, priority analysis.Priority, reason string) (*store.ReviewItem, bool, error) {
	item, created, err := m.store.EnqueueReview(ctx, resultID, priority, reason)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return item, false, nil
	}

	if err := m.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityReviewItem,
		EntityID:   fmt.Sprintf("%d", item.ID),
		Action:     audit.ActionReviewEnqueued,
		Details: map[string]any{
			"result_id": resultID,
			"priority":  int(priority),
			"reason":    reason,
		},
	}); err != nil {
		return nil, false, err
	}

	m.logger.Info("review item enqueued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldResultID, resultID),
		logging.Int("priority", int(priority)),
		logging.String("reason", reason))
	return item, true, nil
}

// Claim acquires an item for a reviewer. Live claims by others are refused;
// claims whose lease has lapsed are silently taken over.
func (m *Manager) Claim(ctx context.Context, itemID int64, reviewerID string) (*store.ReviewItem, error) {
	cutoff := time.Now().UTC().Add(-m.lease)
	item, err := m.store.ClaimReview(ctx, itemID, reviewerID, cutoff)
	if err != nil {
		return nil, err
	}

	if err := m.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityReviewItem,
		EntityID:   fmt.Sprintf("%d", item.ID),
		Action:     audit.ActionReviewClaimed,
		ActorID:    reviewerID,
		Details:    map[string]any{"result_id": item.ResultID},
	}); err != nil {
		return nil, err
	}

	m.logger.Info("review item claimed",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldReviewerID, reviewerID))
	return item, nil
}

// Release hands a claimed item back to the queue.
func (m *Manager) Release(ctx context.Context, itemID int64, reviewerID string) (*store.ReviewItem, error) {
	item, err := m.store.ReleaseReview(ctx, itemID, reviewerID)
	if err != nil {
		return nil, err
	}

	if err := m.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityReviewItem,
		EntityID:   fmt.Sprintf("%d", item.ID),
		Action:     audit.ActionReviewReleased,
		ActorID:    reviewerID,
		Details:    map[string]any{"result_id": item.ResultID},
	}); err != nil {
		return nil, err
	}

	m.logger.Info("review item released",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldReviewerID, reviewerID))
	return item, nil
}

// Resolve records the reviewer's verdict and finalizes the linked result.
func (m *Manager) Resolve(ctx context.Context, itemID int64, reviewerID string, decision store.Decision, correctedValue string) (*store.ReviewItem, error) {
	switch decision {
	case store.DecisionApproved, store.DecisionRejected:
	case store.DecisionCorrected:
		if strings.TrimSpace(correctedValue) == "" {
			return nil, fmt.Errorf("%w: corrected decision requires a corrected value", ErrInvalidDecision)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	item, err := m.store.ResolveReview(ctx, itemID, reviewerID, decision, correctedValue, m.lease)
	if err != nil {
		return nil, err
	}

	if err := m.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityReviewItem,
		EntityID:   fmt.Sprintf("%d", item.ID),
		Action:     audit.ActionReviewResolved,
		ActorID:    reviewerID,
		Details: map[string]any{
			"result_id": item.ResultID,
			"decision":  string(decision),
			"corrected": decision == store.DecisionCorrected,
		},
	}); err != nil {
		return nil, err
	}

	m.logger.Info("review item resolved",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldReviewerID, reviewerID),
		logging.String("decision", string(decision)))
	return item, nil
}

// ListPending returns open items ordered by priority then age.
func (m *Manager) ListPending(ctx context.Context, filter store.ReviewFilter) ([]*store.ReviewItem, error) {
	return m.store.ListPendingReviews(ctx, filter)
}

// Stats reports queue health, optionally scoped to a case reference prefix.
func (m *Manager) Stats(ctx context.Context, caseRef string) (store.ReviewStats, error) {
	return m.store.ReviewQueueStats(ctx, caseRef)
}
