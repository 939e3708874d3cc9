package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"verity/internal/analysis"
)

const resultColumns = "id, content_ref, content_type, analyzer_id, value, entities_json, raw_confidence, adjusted_confidence, audio_duration_seconds, disposition, verification_method, corrected_value, created_at, updated_at"

// ReviewSeed describes the queue item to create alongside a finalized result
// that did not reach a terminal automated disposition.
type ReviewSeed struct {
	Priority analysis.Priority
	Reason   string
}

// CommitResult persists a finalized analysis result and, when seed is
// non-nil, its review queue item in a single transaction. The pipeline
// either commits everything or nothing, so a cancelled submission leaves no
// partial rows behind. Returns the created review item id (0 when none).
func (s *Store) CommitResult(ctx context.Context, result *analysis.Result, seed *ReviewSeed) (int64, error) {
	if result == nil {
		return 0, errors.New("result is nil")
	}
	if !result.Disposition.Determined() {
		return 0, errors.New("result disposition undetermined")
	}

	entitiesJSON, err := marshalEntities(result.Entities)
	if err != nil {
		return 0, err
	}

	var itemID int64
	err = retryOnBusy(ctx, func() error {
		var txErr error
		itemID, txErr = s.commitResultTx(ctx, result, seed, entitiesJSON)
		return txErr
	})
	return itemID, err
}

func (s *Store) commitResultTx(ctx context.Context, result *analysis.Result, seed *ReviewSeed, entitiesJSON string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result.UpdatedAt = now

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO analysis_results (
            id, content_ref, content_type, analyzer_id, value, entities_json,
            raw_confidence, adjusted_confidence, audio_duration_seconds,
            disposition, verification_method, corrected_value, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.ContentRef,
		string(result.ContentType),
		result.AnalyzerID,
		nullableString(result.Value),
		nullableString(entitiesJSON),
		result.RawConfidence,
		result.AdjustedConfidence,
		result.AudioDurationSeconds,
		string(result.Disposition),
		nullableString(result.VerificationMethod),
		nullableString(result.CorrectedValue),
		formatTime(result.CreatedAt),
		formatTime(result.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}

	var itemID int64
	if seed != nil {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO review_items (result_id, priority, reason, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			result.ID,
			int(seed.Priority),
			nullableString(seed.Reason),
			string(ReviewPending),
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return 0, fmt.Errorf("insert review item: %w", err)
		}
		itemID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit result: %w", err)
	}
	return itemID, nil
}

// GetResult fetches an analysis result by identifier.
func (s *Store) GetResult(ctx context.Context, id string) (*analysis.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM analysis_results WHERE id = ?`, id)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// ResultsByContentRef returns all results recorded for a content reference.
func (s *Store) ResultsByContentRef(ctx context.Context, contentRef string) ([]*analysis.Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+resultColumns+` FROM analysis_results WHERE content_ref = ? ORDER BY created_at`,
		contentRef,
	)
	if err != nil {
		return nil, fmt.Errorf("query results by content ref: %w", err)
	}
	defer rows.Close()

	var results []*analysis.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func marshalEntities(entities []analysis.PIIEntity) (string, error) {
	if len(entities) == 0 {
		return "", nil
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return "", fmt.Errorf("marshal entities: %w", err)
	}
	return string(data), nil
}

func scanResult(scanner interface{ Scan(dest ...any) error }) (*analysis.Result, error) {
	var (
		id            string
		contentRef    string
		contentType   string
		analyzerID    string
		value         sql.NullString
		entitiesJSON  sql.NullString
		rawConfidence float64
		adjusted      float64
		audioDuration float64
		disposition   string
		method        sql.NullString
		corrected     sql.NullString
		createdRaw    string
		updatedRaw    string
	)

	if err := scanner.Scan(
		&id,
		&contentRef,
		&contentType,
		&analyzerID,
		&value,
		&entitiesJSON,
		&rawConfidence,
		&adjusted,
		&audioDuration,
		&disposition,
		&method,
		&corrected,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	result := &analysis.Result{
		ID:                   id,
		ContentRef:           contentRef,
		ContentType:          analysis.ContentType(contentType),
		AnalyzerID:           analyzerID,
		Value:                value.String,
		RawConfidence:        rawConfidence,
		AdjustedConfidence:   adjusted,
		AudioDurationSeconds: audioDuration,
		Disposition:          analysis.Disposition(disposition),
		VerificationMethod:   method.String,
		CorrectedValue:       corrected.String,
	}
	if entitiesJSON.Valid && entitiesJSON.String != "" {
		if err := json.Unmarshal([]byte(entitiesJSON.String), &result.Entities); err != nil {
			return nil, fmt.Errorf("unmarshal entities: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		result.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		result.UpdatedAt = updated
	}
	return result, nil
}
