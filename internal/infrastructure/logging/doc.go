// Package logging provides structured logging for homed-cloud.
//
// It wraps the standard library's log/slog with configuration-driven
// level, format, and output selection, and stamps every record with the
// service name and version.
//
// Components that need a logger accept a small Logger interface defined
// at their own package boundary (Debug/Info/Warn/Error with key-value
// pairs); *logging.Logger satisfies all of them, keeping packages free of
// a hard dependency on this one.
package logging
