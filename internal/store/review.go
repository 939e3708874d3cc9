package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"verity/internal/analysis"
)

// ReviewStatus represents the lifecycle of a review queue item.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewClaimed  ReviewStatus = "claimed"
	ReviewResolved ReviewStatus = "resolved"
)

// Decision is the human verdict recorded when an item is resolved.
type Decision string

const (
	DecisionApproved  Decision = "approved"
	DecisionCorrected Decision = "corrected"
	DecisionRejected  Decision = "rejected"
)

// ReviewItem is a unit of human work linked to one analysis result. The item
// annotates the result's lifecycle without owning it.
type ReviewItem struct {
	ID             int64
	ResultID       string
	Priority       analysis.Priority
	Reason         string
	Status         ReviewStatus
	ClaimedBy      string
	ClaimedAt      *time.Time
	Decision       Decision
	CorrectedValue string
	ResolvedBy     string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LeaseExpired reports whether the item's claim is older than the lease.
func (i *ReviewItem) LeaseExpired(lease time.Duration, now time.Time) bool {
	if i.Status != ReviewClaimed || i.ClaimedAt == nil {
		return false
	}
	return now.Sub(*i.ClaimedAt) > lease
}

const reviewColumns = "id, result_id, priority, reason, status, claimed_by, claimed_at, decision, corrected_value, resolved_by, resolved_at, created_at, updated_at"

// EnqueueReview creates a pending review item for a result. When an open
// (pending or claimed) item already exists for that result, the existing item
// is returned and created is false.
func (s *Store) EnqueueReview(ctx context.Context, resultID string, priority analysis.Priority, reason string) (*ReviewItem, bool, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO review_items (result_id, priority, reason, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		resultID,
		int(priority),
		nullableString(reason),
		string(ReviewPending),
		now,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	item, err := s.OpenReviewItemForResult(ctx, resultID)
	if err != nil {
		return nil, false, err
	}
	return item, affected > 0, nil
}

// OpenReviewItemForResult returns the pending or claimed item for a result.
func (s *Store) OpenReviewItemForResult(ctx context.Context, resultID string) (*ReviewItem, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+reviewColumns+` FROM review_items
         WHERE result_id = ? AND status IN (?, ?) LIMIT 1`,
		resultID,
		string(ReviewPending),
		string(ReviewClaimed),
	)
	item, err := scanReviewItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open item for result: %w", err)
	}
	return item, nil
}

// GetReviewItem fetches a review item by identifier.
func (s *Store) GetReviewItem(ctx context.Context, id int64) (*ReviewItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM review_items WHERE id = ?`, id)
	item, err := scanReviewItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return item, nil
}

// ClaimReview atomically claims an item for a reviewer. The claim succeeds
// only when the item is pending, or claimed with a lease that expired before
// the supplied cutoff; the check-and-set runs as a single UPDATE so at most
// one of N concurrent claimants can win.
func (s *Store) ClaimReview(ctx context.Context, id int64, reviewerID string, leaseCutoff time.Time) (*ReviewItem, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, errors.New("reviewer id required")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE review_items
         SET status = ?, claimed_by = ?, claimed_at = ?, updated_at = ?
         WHERE id = ? AND (
             status = ?
             OR (status = ? AND claimed_at < ?)
         )`,
		string(ReviewClaimed),
		reviewerID,
		formatTime(now),
		formatTime(now),
		id,
		string(ReviewPending),
		string(ReviewClaimed),
		formatTime(leaseCutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("claim review item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		item, getErr := s.GetReviewItem(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if item.Status == ReviewResolved {
			return nil, ErrAlreadyResolved
		}
		return nil, fmt.Errorf("%w by %s", ErrAlreadyClaimed, item.ClaimedBy)
	}
	return s.GetReviewItem(ctx, id)
}

// ReleaseReview returns a claimed item to pending. Only the current claimant
// may release.
func (s *Store) ReleaseReview(ctx context.Context, id int64, reviewerID string) (*ReviewItem, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE review_items
         SET status = ?, claimed_by = NULL, claimed_at = NULL, updated_at = ?
         WHERE id = ? AND status = ? AND claimed_by = ?`,
		string(ReviewPending),
		formatTime(time.Now().UTC()),
		id,
		string(ReviewClaimed),
		reviewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("release review item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		item, getErr := s.GetReviewItem(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if item.Status == ReviewResolved {
			return nil, ErrAlreadyResolved
		}
		return nil, ErrNotClaimant
	}
	return s.GetReviewItem(ctx, id)
}

// ResolveReview records the human decision on a claimed item and transitions
// the linked analysis result in the same transaction. The caller must hold
// the live claim; resolving a resolved item fails with ErrAlreadyResolved so
// double submissions surface instead of being silently ignored.
func (s *Store) ResolveReview(ctx context.Context, id int64, reviewerID string, decision Decision, correctedValue string, lease time.Duration) (*ReviewItem, error) {
	if err := retryOnBusy(ctx, func() error {
		return s.resolveReviewTx(ctx, id, reviewerID, decision, correctedValue, lease)
	}); err != nil {
		return nil, err
	}
	return s.GetReviewItem(ctx, id)
}

func (s *Store) resolveReviewTx(ctx context.Context, id int64, reviewerID string, decision Decision, correctedValue string, lease time.Duration) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM review_items WHERE id = ?`, id)
	item, err := scanReviewItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load review item: %w", err)
	}

	switch item.Status {
	case ReviewResolved:
		return ErrAlreadyResolved
	case ReviewClaimed:
		if item.ClaimedBy != reviewerID {
			return fmt.Errorf("%w by %s", ErrAlreadyClaimed, item.ClaimedBy)
		}
		if item.LeaseExpired(lease, now) {
			return fmt.Errorf("%w: claim lease expired", ErrNotClaimant)
		}
	default:
		return ErrNotClaimant
	}

	resultDisposition := analysis.DispositionHumanVerified
	if decision == DecisionRejected {
		resultDisposition = analysis.DispositionRejected
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE review_items
         SET status = ?, decision = ?, corrected_value = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
         WHERE id = ?`,
		string(ReviewResolved),
		string(decision),
		nullableString(correctedValue),
		reviewerID,
		formatTime(now),
		formatTime(now),
		id,
	); err != nil {
		return fmt.Errorf("resolve review item: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE analysis_results
         SET disposition = ?, verification_method = ?, corrected_value = ?, updated_at = ?
         WHERE id = ?`,
		string(resultDisposition),
		analysis.MethodHumanReview,
		nullableString(correctedValue),
		formatTime(now),
		item.ResultID,
	); err != nil {
		return fmt.Errorf("update linked result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve: %w", err)
	}
	return nil
}

// ReviewFilter narrows ListPendingReviews output. Zero values match all.
type ReviewFilter struct {
	CaseRef     string
	ContentType analysis.ContentType
	Priority    analysis.Priority
}

// ListPendingReviews returns open items ordered by priority then age: most
// urgent first, and oldest first within a priority band so low-priority
// items cannot starve.
func (s *Store) ListPendingReviews(ctx context.Context, filter ReviewFilter) ([]*ReviewItem, error) {
	query := `SELECT ` + qualifiedReviewColumns + `
        FROM review_items i
        JOIN analysis_results r ON r.id = i.result_id
        WHERE i.status IN (?, ?)`
	args := []any{string(ReviewPending), string(ReviewClaimed)}

	if filter.CaseRef != "" {
		query += ` AND r.content_ref LIKE ?`
		args = append(args, filter.CaseRef+"%")
	}
	if filter.ContentType != "" {
		query += ` AND r.content_type = ?`
		args = append(args, string(filter.ContentType))
	}
	if filter.Priority != 0 {
		query += ` AND i.priority = ?`
		args = append(args, int(filter.Priority))
	}
	query += ` ORDER BY i.priority, i.created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	defer rows.Close()

	var items []*ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReviewStats aggregates queue health for operational reporting.
type ReviewStats struct {
	Pending           int
	Claimed           int
	Resolved          int
	Corrected         int
	Rejected          int
	CorrectionRate    float64
	FalsePositiveRate float64
	AvgReviewLatency  time.Duration
}

// ReviewQueueStats computes queue statistics, optionally scoped to a case
// reference prefix.
func (s *Store) ReviewQueueStats(ctx context.Context, caseRef string) (ReviewStats, error) {
	var stats ReviewStats

	query := `SELECT i.status, COALESCE(i.decision, ''), COUNT(1),
            COALESCE(AVG((julianday(i.resolved_at) - julianday(i.created_at)) * 86400.0), 0)
        FROM review_items i
        JOIN analysis_results r ON r.id = i.result_id`
	var args []any
	if caseRef != "" {
		query += ` WHERE r.content_ref LIKE ?`
		args = append(args, caseRef+"%")
	}
	query += ` GROUP BY i.status, i.decision`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("review stats: %w", err)
	}
	defer rows.Close()

	var latencySum float64
	var latencyGroups int
	for rows.Next() {
		var status, decision string
		var count int
		var avgLatency float64
		if err := rows.Scan(&status, &decision, &count, &avgLatency); err != nil {
			return stats, err
		}
		switch ReviewStatus(status) {
		case ReviewPending:
			stats.Pending += count
		case ReviewClaimed:
			stats.Claimed += count
		case ReviewResolved:
			stats.Resolved += count
			latencySum += avgLatency * float64(count)
			latencyGroups += count
			switch Decision(decision) {
			case DecisionCorrected:
				stats.Corrected += count
			case DecisionRejected:
				stats.Rejected += count
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.Resolved > 0 {
		stats.CorrectionRate = float64(stats.Corrected) / float64(stats.Resolved)
		stats.FalsePositiveRate = float64(stats.Rejected) / float64(stats.Resolved)
		stats.AvgReviewLatency = time.Duration(latencySum / float64(latencyGroups) * float64(time.Second))
	}
	return stats, nil
}

var qualifiedReviewColumns = func() string {
	parts := strings.Split(reviewColumns, ", ")
	for i, part := range parts {
		parts[i] = "i." + part
	}
	return strings.Join(parts, ", ")
}()

func scanReviewItem(scanner interface{ Scan(dest ...any) error }) (*ReviewItem, error) {
	var (
		id          int64
		resultID    string
		priority    int
		reason      sql.NullString
		status      string
		claimedBy   sql.NullString
		claimedRaw  sql.NullString
		decision    sql.NullString
		corrected   sql.NullString
		resolvedBy  sql.NullString
		resolvedRaw sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&resultID,
		&priority,
		&reason,
		&status,
		&claimedBy,
		&claimedRaw,
		&decision,
		&corrected,
		&resolvedBy,
		&resolvedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &ReviewItem{
		ID:             id,
		ResultID:       resultID,
		Priority:       analysis.Priority(priority),
		Reason:         reason.String,
		Status:         ReviewStatus(status),
		ClaimedBy:      claimedBy.String,
		Decision:       Decision(decision.String),
		CorrectedValue: corrected.String,
		ResolvedBy:     resolvedBy.String,
	}
	if claimedRaw.Valid {
		if t, err := parseTimeString(claimedRaw.String); err == nil {
			item.ClaimedAt = &t
		}
	}
	if resolvedRaw.Valid {
		if t, err := parseTimeString(resolvedRaw.String); err == nil {
			item.ResolvedAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}
