// Package logging assembles structured slog loggers and formatting helpers used
// across scribe.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so pipeline code tags log lines with job IDs,
// stages, and correlation IDs. Console output goes to stderr because stdout
// carries the NDJSON event stream. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
