// Package textmetrics provides the text comparison primitives used by
// cross-validation and anomaly detection: normalized edit-distance
// similarity, word error rate, and dictionary-token ratios.
package textmetrics
