package logging_test

import (
	"context"
	"testing"

	"curator/internal/logging"
	"curator/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewDefaultsToConsole(t *testing.T) {
	logger, err := logging.New(logging.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestWithContextAddsSourceFields(t *testing.T) {
	ctx := services.WithSourceID(context.Background(), 42)
	ctx = services.WithSourceURL(ctx, "https://example.com/events")

	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 context fields, got %d", len(fields))
	}

	logger := logging.WithContext(ctx, logging.NewNop())
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("should not panic")
}
