// Package logging assembles structured slog loggers and formatting helpers
// used across reelsmith components.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and defines the shared field vocabulary so every
// component tags log lines with job IDs and stage names the same way. The
// package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
