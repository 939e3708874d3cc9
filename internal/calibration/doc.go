// Package calibration measures analyzer accuracy against fixtures with known
// ground truth and publishes per-analyzer confidence multipliers.
//
// The Table is the read side: the router looks up the active multiplier and
// health status on every submission. The Runner is the write side: on a
// schedule it scores each analyzer, classifies it as healthy, degraded, or
// failed, persists the run, and swaps in a fresh table.
package calibration
