// Package logger configures the process-wide slog logger and carries
// operation-scoped loggers through context.Context.
//
// Records are JSON. Engines and stores tag their loggers with a "component"
// attribute and enrich them per operation, e.g. with the card number.
package logger
