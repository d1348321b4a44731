// Package logging builds the slog loggers used across the controller.
//
// Console output is a compact single-line format with a component
// prefix and key=value attributes; JSON output uses the stock slog
// handler with normalized field names. Components get their own child
// logger via NewComponentLogger so log lines stay attributable.
package logging
