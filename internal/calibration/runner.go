package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"verity/internal/analysis"
	"verity/internal/audit"
	"verity/internal/config"
	"verity/internal/logging"
	"verity/internal/store"
	"verity/internal/textmetrics"
)

// Text samples count as correct when the analyzer output reaches this
// similarity against the ground truth.
const sampleMatchThreshold = 0.90

// Prediction is an analyzer's output for one calibration sample.
type Prediction struct {
	Text     string
	Entities []analysis.PIIEntity
}

// Analyzer is the self-test surface of an analysis engine. Production
// engines implement this alongside their pipeline interface.
type Analyzer interface {
	ID() string
	ContentType() analysis.ContentType
	Analyze(ctx context.Context, sample Sample) (Prediction, error)
}

// Runner executes scheduled calibration passes: each registered analyzer is
// run against its fixture set, scored, classified, persisted, and the active
// multiplier table is republished.
type Runner struct {
	cfg       *config.Config
	store     *store.Store
	table     *Table
	sink      audit.Sink
	logger    *slog.Logger
	analyzers []Analyzer
	cron      *cron.Cron
}

// NewRunner builds a runner over the given analyzers.
func NewRunner(cfg *config.Config, st *store.Store, table *Table, sink audit.Sink, logger *slog.Logger, analyzers ...Analyzer) *Runner {
	return &Runner{
		cfg:       cfg,
		store:     st,
		table:     table,
		sink:      sink,
		logger:    logging.NewComponentLogger(logger, "calibration"),
		analyzers: analyzers,
	}
}

// Start hydrates the table from persisted runs and schedules recurring
// passes. It returns after scheduling; passes run on the cron goroutine.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.table.Hydrate(ctx, r.store); err != nil {
		return fmt.Errorf("hydrate calibration table: %w", err)
	}

	r.cron = cron.New()
	spec := fmt.Sprintf("@every %dh", r.cfg.Calibration.IntervalHours)
	if _, err := r.cron.AddFunc(spec, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("calibration pass failed", logging.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule calibration: %w", err)
	}
	r.cron.Start()

	if r.cfg.Calibration.RunOnStart {
		go func() {
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("startup calibration failed", logging.Error(err))
			}
		}()
	}
	return nil
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce executes a single calibration pass over all registered analyzers.
// Analyzers without fixtures keep their previous entry.
func (r *Runner) RunOnce(ctx context.Context) error {
	entries := r.table.Snapshot()
	var firstErr error

	for _, analyzer := range r.analyzers {
		run, err := r.runAnalyzer(ctx, analyzer)
		if err != nil {
			if errors.Is(err, ErrFixtureMissing) {
				r.logger.Warn("skipping analyzer without fixtures",
					logging.String(logging.FieldAnalyzerID, analyzer.ID()))
				continue
			}
			r.logger.Error("calibration run failed",
				logging.String(logging.FieldAnalyzerID, analyzer.ID()),
				logging.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		entries[analyzer.ID()] = Entry{Multiplier: run.Multiplier, Status: run.Status}
	}

	r.table.Replace(entries)
	return firstErr
}

func (r *Runner) runAnalyzer(ctx context.Context, analyzer Analyzer) (*store.CalibrationRun, error) {
	fixtures, err := LoadFixtures(r.cfg.Calibration.FixtureDir, analyzer.ID())
	if err != nil {
		return nil, err
	}
	if len(fixtures.Samples) < r.cfg.Calibration.SampleCountRequired {
		return nil, fmt.Errorf("%w: %s has %d samples, need %d",
			ErrFixtureMissing, analyzer.ID(), len(fixtures.Samples), r.cfg.Calibration.SampleCountRequired)
	}

	start := time.Now()
	run := r.score(ctx, analyzer, fixtures)
	run.Status, run.Multiplier = r.classify(run.Accuracy)

	if err := r.store.InsertCalibrationRun(ctx, run); err != nil {
		return nil, err
	}

	details := map[string]any{
		"accuracy":     run.Accuracy,
		"sample_count": run.SampleCount,
		"status":       string(run.Status),
		"multiplier":   run.Multiplier,
	}
	if run.HasF1 {
		details["f1_score"] = run.F1Score
	}
	if err := r.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityAnalyzer,
		EntityID:   analyzer.ID(),
		Action:     audit.ActionCalibrationRun,
		Details:    details,
	}); err != nil {
		return nil, err
	}

	r.logger.Info("calibration run complete",
		logging.String(logging.FieldAnalyzerID, analyzer.ID()),
		logging.Float64("accuracy", run.Accuracy),
		logging.String("status", string(run.Status)),
		logging.Float64("multiplier", run.Multiplier),
		logging.Duration("elapsed", time.Since(start)))
	return run, nil
}

// score runs every sample through the analyzer. Samples that error count as
// incorrect rather than aborting the pass.
func (r *Runner) score(ctx context.Context, analyzer Analyzer, fixtures *FixtureSet) *store.CalibrationRun {
	run := &store.CalibrationRun{
		AnalyzerID:  analyzer.ID(),
		SampleCount: len(fixtures.Samples),
	}

	if analyzer.ContentType() == analysis.ContentPII {
		var truePositives, falsePositives, falseNegatives int
		for _, sample := range fixtures.Samples {
			prediction, err := analyzer.Analyze(ctx, sample)
			if err != nil {
				falseNegatives += len(sample.Entities)
				continue
			}
			tp, fp, fn := matchEntities(sample.Entities, prediction.Entities)
			truePositives += tp
			falsePositives += fp
			falseNegatives += fn
		}
		run.Accuracy = safeRatio(truePositives, truePositives+falsePositives+falseNegatives)
		run.F1Score = safeRatio(2*truePositives, 2*truePositives+falsePositives+falseNegatives)
		run.HasF1 = true
		return run
	}

	var correct int
	for _, sample := range fixtures.Samples {
		prediction, err := analyzer.Analyze(ctx, sample)
		if err != nil {
			continue
		}
		if textmetrics.Similarity(prediction.Text, sample.Truth) >= sampleMatchThreshold {
			correct++
		}
	}
	run.Accuracy = safeRatio(correct, len(fixtures.Samples))
	return run
}

func (r *Runner) classify(accuracy float64) (store.RunStatus, float64) {
	switch {
	case accuracy >= r.cfg.Calibration.MinAccuracy:
		return store.RunHealthy, 1.0
	case accuracy <= r.cfg.Calibration.HardFloor:
		return store.RunFailed, 0.0
	default:
		return store.RunDegraded, r.cfg.Calibration.DegradedMultiplier
	}
}

// matchEntities compares predicted entity spans against ground truth by
// type and character offsets.
func matchEntities(truth, predicted []analysis.PIIEntity) (tp, fp, fn int) {
	expected := make(map[string]bool, len(truth))
	for _, entity := range truth {
		expected[entity.Span()] = true
	}
	seen := make(map[string]bool, len(predicted))
	for _, entity := range predicted {
		span := entity.Span()
		if seen[span] {
			continue
		}
		seen[span] = true
		if expected[span] {
			tp++
		} else {
			fp++
		}
	}
	fn = len(expected) - tp
	return tp, fp, fn
}

func safeRatio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
