package main

import (
	"fmt"

	"verity/internal/audit"
	"verity/internal/config"
	"verity/internal/logging"
	"verity/internal/review"
	"verity/internal/store"
)

// commandContext carries lazily-initialized shared state across commands.
type commandContext struct {
	configFlag *string

	cfg   *config.Config
	store *store.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads and caches the configuration.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// openStore opens the verification database, creating data directories when
// needed so read commands work before the daemon's first run.
func (c *commandContext) openStore() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = st
	return st, nil
}

// reviewManager builds a review manager with a persistent audit trail. CLI
// transitions are audited exactly like daemon transitions.
func (c *commandContext) reviewManager() (*review.Manager, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return review.NewManager(c.cfg, st, audit.NewStoreSink(st), logging.NewNop()), nil
}
