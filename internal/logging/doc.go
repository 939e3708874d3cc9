// Package logging builds the slog loggers used by the daemon and CLI.
//
// It provides console and JSON handlers, tty-based format auto-detection,
// standardized attribute keys for pipeline events, and a no-op logger for
// tests. Components obtain a tagged logger via NewComponentLogger so the
// console handler can render "component: message" prefixes.
package logging
