package logging

import (
	"context"
	"log/slog"

	"packflow/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPackageID is the standardized structured logging key for package record identifiers.
	FieldPackageID = "package_id"
	// FieldTransition is the standardized structured logging key for transition names.
	FieldTransition = "transition"
	// FieldState is the standardized structured logging key for package states.
	FieldState = "state"
	// FieldErrorCode is the standardized structured logging key for transition error codes.
	FieldErrorCode = "error_code"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log lines with a machine-filterable event category.
	FieldEventType = "event_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.PackageIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldPackageID, id))
	}
	if transition, ok := services.TransitionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTransition, transition))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
