// Package main hosts the Verity CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into store
// queries, review queue operations, calibration reports, audit trail lookups,
// and submission spooling for the daemon. It centralizes configuration
// resolution and output formatting so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
