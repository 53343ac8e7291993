// Package logging builds the slog loggers used across podcast-insights: a
// compact console handler for interactive use and a JSON handler for
// machine-readable logs, with fan-out to stdout and the configured log file.
package logging
