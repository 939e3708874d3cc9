// Package analysis defines the core data model for machine-generated
// analysis results: content types, dispositions, verification method tags,
// PII entities, and submission validation.
//
// Treat this package as the single source of truth for disposition
// semantics; routing, cross-validation, and the review queue all express
// their transitions in these types.
package analysis
