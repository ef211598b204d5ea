// Package logging builds slog loggers for the kiln daemon and CLI.
//
// It provides a console handler for interactive use, a JSON handler for
// machine-readable logs, typed attribute helpers, and a no-op logger for
// tests. Component loggers carry a standardized "component" attribute so
// bake-batch output can be filtered per subsystem.
package logging
