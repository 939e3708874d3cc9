package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"verity/internal/analysis"
	"verity/internal/config"
	"verity/internal/logging"
)

// ErrPoolClosed is returned by Enqueue after the pool has shut down.
var ErrPoolClosed = errors.New("ingestion pool closed")

// Pool fans submissions out to a fixed set of pipeline workers. Submissions
// are independent, so workers never coordinate beyond sharing the store.
type Pool struct {
	pipeline *Pipeline
	logger   *slog.Logger

	submissions chan analysis.Submission
	wg          sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool sizes the pool from configuration.
func NewPool(cfg *config.Config, p *Pipeline, logger *slog.Logger) *Pool {
	pool := &Pool{
		pipeline:    p,
		logger:      logging.NewComponentLogger(logger, "pool"),
		submissions: make(chan analysis.Submission, cfg.Workers.Count*4),
	}
	pool.wg.Add(cfg.Workers.Count)
	for i := 0; i < cfg.Workers.Count; i++ {
		go pool.worker()
	}
	return pool
}

// Enqueue hands a submission to the workers, blocking when the buffer is
// full so producers experience backpressure instead of unbounded queuing.
func (p *Pool) Enqueue(ctx context.Context, sub analysis.Submission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.submissions <- sub:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains in-flight submissions and stops the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.submissions)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for sub := range p.submissions {
		if _, err := p.pipeline.Submit(context.Background(), sub); err != nil {
			p.logger.Error("submission failed",
				logging.String(logging.FieldContentRef, sub.ContentRef),
				logging.String(logging.FieldAnalyzerID, sub.AnalyzerID),
				logging.Error(err))
		}
	}
}
