package calibration

import (
	"context"
	"sync/atomic"

	"verity/internal/store"
)

// Entry is the active calibration state for one analyzer.
type Entry struct {
	Multiplier float64
	Status     store.RunStatus
}

// Table holds the current per-analyzer calibration entries. Reads happen on
// every submission, writes only after a calibration pass, so the map is
// swapped wholesale behind an atomic pointer instead of guarded by a mutex.
type Table struct {
	entries atomic.Pointer[map[string]Entry]
}

// NewTable returns an empty table; every analyzer starts healthy at 1.0.
func NewTable() *Table {
	t := &Table{}
	empty := make(map[string]Entry)
	t.entries.Store(&empty)
	return t
}

// Lookup returns the active entry for an analyzer. Unknown analyzers are
// treated as healthy with an identity multiplier.
func (t *Table) Lookup(analyzerID string) Entry {
	entries := *t.entries.Load()
	if entry, ok := entries[analyzerID]; ok {
		return entry
	}
	return Entry{Multiplier: 1.0, Status: store.RunHealthy}
}

// Snapshot returns a copy of the current entries.
func (t *Table) Snapshot() map[string]Entry {
	entries := *t.entries.Load()
	copied := make(map[string]Entry, len(entries))
	for id, entry := range entries {
		copied[id] = entry
	}
	return copied
}

// Replace swaps in a new entry set atomically.
func (t *Table) Replace(entries map[string]Entry) {
	copied := make(map[string]Entry, len(entries))
	for id, entry := range entries {
		copied[id] = entry
	}
	t.entries.Store(&copied)
}

// Hydrate seeds the table from the most recent persisted run per analyzer,
// so multipliers survive a daemon restart.
func (t *Table) Hydrate(ctx context.Context, st *store.Store) error {
	latest, err := st.LatestCalibrationRuns(ctx)
	if err != nil {
		return err
	}
	entries := make(map[string]Entry, len(latest))
	for id, run := range latest {
		entries[id] = Entry{Multiplier: run.Multiplier, Status: run.Status}
	}
	t.entries.Store(&entries)
	return nil
}
