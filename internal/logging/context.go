package logging

import (
	"context"
	"log/slog"

	"curator/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSourceID is the standardized structured logging key for scrape source identifiers.
	FieldSourceID = "source_id"
	// FieldSourceURL is the standardized structured logging key for scrape source URLs.
	FieldSourceURL = "source_url"
	// FieldRecordID is the standardized structured logging key for staging record identifiers.
	FieldRecordID = "record_id"
	// FieldRunStatus is the standardized structured logging key for classified run statuses.
	FieldRunStatus = "run_status"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log lines with a machine-matchable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing remediation hint.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.SourceIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSourceID, id))
	}
	if url, ok := services.SourceURLFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSourceURL, url))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
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
