// Package logging assembles structured slog loggers and formatting helpers used
// across filesorter.
//
// It owns the configurable console/JSON handlers, tees daemon output into a
// JSON log file under the configured log directory, and exposes context-aware
// helpers so pipeline code can tag log lines with the file path, stage, and run
// identifier. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
