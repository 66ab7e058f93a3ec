// Package logging assembles structured slog loggers and formatting helpers used
// across autosub.
//
// It owns the configurable console/JSON handlers, tees records into a JSON log
// file, and exposes context-aware helpers so stage code can tag log lines with
// run IDs, stages, and source paths. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
