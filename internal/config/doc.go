// Package config loads, normalizes, and validates verity configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates routing thresholds, anomaly
// bounds, and calibration health limits so downstream packages can trust
// every knob they read.
//
// Always obtain settings through this package so the router, validators,
// and review queue receive sanitized values and clear validation errors.
package config
