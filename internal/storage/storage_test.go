package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"curator/internal/storage"
	"curator/internal/testsupport"
)

func TestOpenAppliesSchemaAndMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var version int
	if err := store.Handle().QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version < 1 {
		t.Errorf("schema version = %d, want >= 1", version)
	}

	var migrations int
	if err := store.Handle().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&migrations); err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if migrations == 0 {
		t.Error("expected at least one applied migration")
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Exec(context.Background(),
		"INSERT INTO practices (name, created_at) VALUES (?, ?)",
		"Yoga", storage.FormatTime(time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.Handle().QueryRow("SELECT COUNT(*) FROM practices").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("practices = %d after reopen, want 1", count)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 30, 0, 123456789, time.UTC)
	parsed, err := storage.ParseTime(storage.FormatTime(now))
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("round trip = %v, want %v", parsed, now)
	}

	if _, err := storage.ParseTime(""); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := storage.ParseTime("2026-09-01 10:30:00"); err != nil {
		t.Errorf("plain datetime form rejected: %v", err)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	sentinel := errors.New("boom")
	err := storage.RetryOnBusy(context.Background(), func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for non-busy error", calls)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := storage.Placeholders(3); got != "?,?,?" {
		t.Errorf("Placeholders(3) = %q", got)
	}
	if got := storage.Placeholders(0); got != "" {
		t.Errorf("Placeholders(0) = %q", got)
	}
}
