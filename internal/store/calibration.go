package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus classifies an analyzer's health after a calibration pass.
type RunStatus string

const (
	RunHealthy  RunStatus = "healthy"
	RunDegraded RunStatus = "degraded"
	RunFailed   RunStatus = "failed"
)

// CalibrationRun is one scheduled self-test of an analyzer against fixtures
// with known ground truth. Rows are append-only; the most recent run per
// analyzer determines the active calibration multiplier.
type CalibrationRun struct {
	ID          int64
	AnalyzerID  string
	SampleCount int
	Accuracy    float64
	F1Score     float64
	HasF1       bool
	Status      RunStatus
	Multiplier  float64
	RanAt       time.Time
}

const calibrationColumns = "id, analyzer_id, sample_count, accuracy, f1_score, status, multiplier, ran_at"

// InsertCalibrationRun appends a calibration run record.
func (s *Store) InsertCalibrationRun(ctx context.Context, run *CalibrationRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.RanAt.IsZero() {
		run.RanAt = time.Now().UTC()
	}
	var f1 any
	if run.HasF1 {
		f1 = run.F1Score
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO calibration_runs (analyzer_id, sample_count, accuracy, f1_score, status, multiplier, ran_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.AnalyzerID,
		run.SampleCount,
		run.Accuracy,
		f1,
		string(run.Status),
		run.Multiplier,
		formatTime(run.RanAt),
	)
	if err != nil {
		return fmt.Errorf("insert calibration run: %w", err)
	}
	run.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// LatestCalibrationRuns returns the most recent run per analyzer.
func (s *Store) LatestCalibrationRuns(ctx context.Context) (map[string]*CalibrationRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+calibrationColumns+` FROM calibration_runs
         WHERE id IN (SELECT MAX(id) FROM calibration_runs GROUP BY analyzer_id)`,
	)
	if err != nil {
		return nil, fmt.Errorf("latest calibration runs: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*CalibrationRun)
	for rows.Next() {
		run, err := scanCalibrationRun(rows)
		if err != nil {
			return nil, err
		}
		latest[run.AnalyzerID] = run
	}
	return latest, rows.Err()
}

// CalibrationHistory returns all runs for an analyzer, newest first.
func (s *Store) CalibrationHistory(ctx context.Context, analyzerID string) ([]*CalibrationRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+calibrationColumns+` FROM calibration_runs WHERE analyzer_id = ? ORDER BY id DESC`,
		analyzerID,
	)
	if err != nil {
		return nil, fmt.Errorf("calibration history: %w", err)
	}
	defer rows.Close()

	var runs []*CalibrationRun
	for rows.Next() {
		run, err := scanCalibrationRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanCalibrationRun(scanner interface{ Scan(dest ...any) error }) (*CalibrationRun, error) {
	var (
		id          int64
		analyzerID  string
		sampleCount int
		accuracy    float64
		f1          sql.NullFloat64
		status      string
		multiplier  float64
		ranRaw      string
	)
	if err := scanner.Scan(&id, &analyzerID, &sampleCount, &accuracy, &f1, &status, &multiplier, &ranRaw); err != nil {
		return nil, err
	}
	run := &CalibrationRun{
		ID:          id,
		AnalyzerID:  analyzerID,
		SampleCount: sampleCount,
		Accuracy:    accuracy,
		F1Score:     f1.Float64,
		HasF1:       f1.Valid,
		Status:      RunStatus(status),
		Multiplier:  multiplier,
	}
	if ranAt, err := parseTimeString(ranRaw); err == nil {
		run.RanAt = ranAt
	}
	return run, nil
}
