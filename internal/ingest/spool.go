// Package ingest feeds the pipeline from a spool directory. Producers drop
// one JSON submission per file into the incoming directory; the watcher
// parses each file, hands it to the worker pool, and moves the file to
// processed or failed so a restart never replays accepted work.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"verity/internal/analysis"
	"verity/internal/config"
	"verity/internal/logging"
	"verity/internal/pipeline"
)

// SubmissionFile is the on-disk JSON shape of one analyzer submission.
type SubmissionFile struct {
	ContentRef           string      `json:"contentRef"`
	ContentType          string      `json:"contentType"`
	AnalyzerID           string      `json:"analyzerId"`
	Value                string      `json:"value,omitempty"`
	Entities             []PIIEntity `json:"entities,omitempty"`
	RawConfidence        float64     `json:"rawConfidence"`
	AudioDurationSeconds float64     `json:"audioDurationSeconds,omitempty"`
}

// PIIEntity is the on-disk shape of one detected entity.
type PIIEntity struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
}

// ParseSubmission decodes a submission file payload.
func ParseSubmission(data []byte) (analysis.Submission, error) {
	var file SubmissionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return analysis.Submission{}, fmt.Errorf("parse submission: %w", err)
	}
	sub := analysis.Submission{
		ContentRef:           file.ContentRef,
		ContentType:          analysis.ContentType(strings.ToLower(strings.TrimSpace(file.ContentType))),
		AnalyzerID:           file.AnalyzerID,
		Value:                file.Value,
		RawConfidence:        file.RawConfidence,
		AudioDurationSeconds: file.AudioDurationSeconds,
	}
	for _, entity := range file.Entities {
		sub.Entities = append(sub.Entities, analysis.PIIEntity{
			Type:  entity.Type,
			Start: entity.Start,
			End:   entity.End,
			Text:  entity.Text,
		})
	}
	return sub, nil
}

// Watcher polls the incoming directory and feeds the pool.
type Watcher struct {
	incoming  string
	processed string
	failed    string
	pool      *pipeline.Pool
	interval  time.Duration
	logger    *slog.Logger
}

// NewWatcher builds a watcher over the configured spool directories.
func NewWatcher(cfg *config.Config, pool *pipeline.Pool, logger *slog.Logger) *Watcher {
	return &Watcher{
		incoming:  cfg.IncomingDir(),
		processed: cfg.ProcessedDir(),
		failed:    cfg.FailedDir(),
		pool:      pool,
		interval:  time.Second,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sweep processes every submission file currently in the spool, oldest
// name first so producers can order work lexically.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.incoming)
	if err != nil {
		w.logger.Error("read spool directory", logging.Error(err))
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		w.handleFile(ctx, name)
	}
}

func (w *Watcher) handleFile(ctx context.Context, name string) {
	path := filepath.Join(w.incoming, name)
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("read submission file", logging.String("file", name), logging.Error(err))
		return
	}

	sub, err := ParseSubmission(data)
	if err != nil {
		w.logger.Warn("rejecting malformed submission file",
			logging.String("file", name), logging.Error(err))
		w.move(name, w.failed)
		return
	}

	if err := w.pool.Enqueue(ctx, sub); err != nil {
		// Pool closed or context cancelled; leave the file for the next run.
		w.logger.Warn("submission not enqueued", logging.String("file", name), logging.Error(err))
		return
	}

	w.move(name, w.processed)
	w.logger.Info("submission accepted",
		logging.String("file", name),
		logging.String(logging.FieldContentRef, sub.ContentRef),
		logging.String(logging.FieldAnalyzerID, sub.AnalyzerID))
}

func (w *Watcher) move(name, dir string) {
	src := filepath.Join(w.incoming, name)
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err != nil {
		w.logger.Error("move submission file", logging.String("file", name), logging.Error(err))
	}
}
