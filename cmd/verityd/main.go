package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"

	"verity/internal/anomaly"
	"verity/internal/audit"
	"verity/internal/calibration"
	"verity/internal/config"
	"verity/internal/crossval"
	"verity/internal/ingest"
	"verity/internal/logging"
	"verity/internal/pipeline"
	"verity/internal/router"
	"verity/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire daemon lock: %v", err)
	}
	if !locked {
		log.Fatalf("another verityd instance holds %s", cfg.LockPath())
	}
	defer lock.Unlock() //nolint:errcheck

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	sink := audit.NewFanout(audit.NewStoreSink(st), audit.NewLogSink(logger))
	table := calibration.NewTable()

	runner := calibration.NewRunner(cfg, st, table, sink, logger, registerAnalyzers(cfg, logger)...)
	if err := runner.Start(ctx); err != nil {
		log.Fatalf("start calibration runner: %v", err)
	}
	defer runner.Stop()

	p := pipeline.New(
		st,
		router.New(cfg, table, logger),
		anomaly.New(cfg, sink, logger),
		crossval.NewRegistry(cfg, registerEngines(cfg, logger), logger),
		sink,
		logger,
	)
	pool := pipeline.NewPool(cfg, p, logger)
	defer pool.Close()

	watcher := ingest.NewWatcher(cfg, pool, logger)
	go watcher.Run(ctx)

	logger.Info("verityd started",
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.Int("workers", cfg.Workers.Count))

	<-ctx.Done()
	logger.Info("verityd shutting down")
}
