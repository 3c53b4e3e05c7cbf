// Package logging constructs the slog loggers used across shellac. Output is
// either a human console format or JSON, optionally teed into a log file.
package logging
