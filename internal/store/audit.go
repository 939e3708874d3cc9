package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditRow is a persisted audit event. Rows are append-only and never
// mutated after insertion.
type AuditRow struct {
	ID          string
	EntityType  string
	EntityID    string
	Action      string
	ActorID     string
	DetailsJSON string
	CreatedAt   time.Time
}

// InsertAuditEvent appends an audit row.
func (s *Store) InsertAuditEvent(ctx context.Context, row *AuditRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO audit_events (id, entity_type, entity_id, action, actor_id, details_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.EntityType,
		row.EntityID,
		row.Action,
		nullableString(row.ActorID),
		nullableString(row.DetailsJSON),
		formatTime(row.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// AuditEventsForEntity returns the audit trail for one entity in insertion
// order.
func (s *Store) AuditEventsForEntity(ctx context.Context, entityType, entityID string) ([]*AuditRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, entity_type, entity_id, action, actor_id, details_json, created_at
         FROM audit_events WHERE entity_type = ? AND entity_id = ? ORDER BY created_at`,
		entityType,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*AuditRow
	for rows.Next() {
		var (
			row       AuditRow
			actor     sql.NullString
			details   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&row.ID, &row.EntityType, &row.EntityID, &row.Action, &actor, &details, &createdAt); err != nil {
			return nil, err
		}
		row.ActorID = actor.String
		row.DetailsJSON = details.String
		if t, err := parseTimeString(createdAt); err == nil {
			row.CreatedAt = t
		}
		events = append(events, &row)
	}
	return events, rows.Err()
}
