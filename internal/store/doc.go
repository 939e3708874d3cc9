// Package store persists verification state in SQLite: analysis results,
// review queue items, calibration runs, and the audit trail.
//
// The Store manages database connections, embedded migrations, the atomic
// claim check-and-set for review items, and the coupled transitions between
// a review item and its linked analysis result. Claim leases are modeled as
// (claimed_by, claimed_at) rather than a lock flag because reviewer sessions
// can disappear without releasing; expiry is evaluated lazily at claim time.
//
// Treat this package as the single source of truth for state-machine
// semantics; when you add statuses or columns, add a migration under
// migrations/.
package store
