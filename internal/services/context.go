package services

import "context"

type contextKey string

const (
	sourceIDKey  contextKey = "source_id"
	sourceURLKey contextKey = "source_url"
	requestIDKey contextKey = "request_id"
)

// WithSourceID annotates context with the scrape source identifier.
func WithSourceID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, sourceIDKey, id)
}

// SourceIDFromContext extracts the scrape source identifier if present.
func SourceIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(sourceIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithSourceURL annotates context with the scrape source URL.
func WithSourceURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceURLKey, url)
}

// SourceURLFromContext returns the scrape source URL if present.
func SourceURLFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceURLKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
