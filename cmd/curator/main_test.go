package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/payload"
	"curator/internal/staging"
	"curator/internal/storage"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "curator.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[extraction]
api_key = "test"
`, filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, err := runCommand(t, configPath, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func openTestStore(t *testing.T, configPath string) (*config.Config, *storage.Store) {
	t.Helper()
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return cfg, store
}

func TestSourcesAddAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	out := mustRun(t, configPath, "sources", "add", "https://studio.example/classes",
		"--name", "Studio", "--owner-first", "Jane", "--owner-last", "Doe")
	if !strings.Contains(out, "Added source 1") {
		t.Errorf("unexpected add output: %s", out)
	}

	out = mustRun(t, configPath, "sources", "list")
	if !strings.Contains(out, "https://studio.example/classes") {
		t.Errorf("list output missing source: %s", out)
	}

	mustRun(t, configPath, "sources", "disable", "1")
	out = mustRun(t, configPath, "sources", "list")
	if !strings.Contains(out, "no") {
		t.Errorf("list output should show disabled source: %s", out)
	}
}

func TestSourcesAddRejectsBadInput(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, configPath, "sources", "add", "not-a-url"); err == nil {
		t.Error("expected error for malformed url")
	}
	if _, err := runCommand(t, configPath, "sources", "add", "https://x/1", "--type", "franchise"); err == nil {
		t.Error("expected error for unknown site type")
	}
}

func TestScrapeUnknownSourceFails(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCommand(t, configPath, "scrape", "999")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if _, err := runCommand(t, configPath, "scrape", "https://nowhere.example/"); err == nil {
		t.Error("expected not-found error for unknown url")
	}
}

func stageCandidate(t *testing.T, configPath string) int64 {
	t.Helper()
	_, store := openTestStore(t, configPath)
	ctx := context.Background()

	cat := catalog.NewStore(store)
	if _, err := cat.CreateTeacher(ctx, "Jane", "Doe"); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}
	if _, err := cat.CreatePractice(ctx, "Yoga"); err != nil {
		t.Fatalf("CreatePractice: %v", err)
	}

	start := time.Now().UTC().AddDate(0, 1, 0).Format(payload.DateLayout)
	record, err := staging.NewStore(store).Create(ctx, "https://studio.example/classes", time.Now().UTC(),
		payload.Candidate{
			Teacher: payload.Teacher{FirstName: "Jane", LastName: "Doe"},
			Event: payload.Event{
				Title:       "Morning Flow",
				Description: "A calm start",
				Practice:    "Yoga",
				SourceURL:   "https://studio.example/classes",
				IsOnline:    true,
				OnlineURL:   "https://meet.example/1",
				StartDate:   start,
			},
		})
	if err != nil {
		t.Fatalf("Create record: %v", err)
	}
	return record.ID
}

func TestReviewAndImportFlow(t *testing.T) {
	configPath := writeTestConfig(t)
	recordID := stageCandidate(t, configPath)

	out := mustRun(t, configPath, "review", "list")
	if !strings.Contains(out, "Morning Flow") {
		t.Errorf("review list missing record: %s", out)
	}

	out = mustRun(t, configPath, "review", "show", fmt.Sprint(recordID))
	if !strings.Contains(out, "Jane Doe") {
		t.Errorf("review show missing teacher: %s", out)
	}

	mustRun(t, configPath, "review", "validate", fmt.Sprint(recordID), "--by", "tester")

	out = mustRun(t, configPath, "import", fmt.Sprint(recordID), "--by", "tester")
	if !strings.Contains(out, "imported as event") {
		t.Errorf("import output: %s", out)
	}

	// Importing again must fail: the record is no longer validated.
	if _, err := runCommand(t, configPath, "import", fmt.Sprint(recordID), "--by", "tester"); err == nil {
		t.Error("expected second import to fail")
	}

	mustRun(t, configPath, "review", "reset", fmt.Sprint(recordID))
	out = mustRun(t, configPath, "review", "list", "--status", "pending")
	if !strings.Contains(out, "Morning Flow") {
		t.Errorf("record missing after reset: %s", out)
	}
}

func TestReviewRejectRequiresNotes(t *testing.T) {
	configPath := writeTestConfig(t)
	recordID := stageCandidate(t, configPath)

	if _, err := runCommand(t, configPath, "review", "reject", fmt.Sprint(recordID)); err == nil {
		t.Error("expected reject without notes to fail")
	}
	mustRun(t, configPath, "review", "reject", fmt.Sprint(recordID), "--notes", "duplicate listing")
}

func TestReviewValidateForceRequiresNotes(t *testing.T) {
	configPath := writeTestConfig(t)
	recordID := stageCandidate(t, configPath)

	if _, err := runCommand(t, configPath, "review", "validate", fmt.Sprint(recordID), "--force"); err == nil {
		t.Error("expected forced validation without notes to fail")
	}
	mustRun(t, configPath, "review", "validate", fmt.Sprint(recordID),
		"--force", "--notes", "manually verified", "--by", "tester")
}

func TestStatusCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	stageCandidate(t, configPath)

	out := mustRun(t, configPath, "status")
	if !strings.Contains(out, "Staging") || !strings.Contains(out, "pending") {
		t.Errorf("status output: %s", out)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
}
