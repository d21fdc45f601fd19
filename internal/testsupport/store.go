package testsupport

import (
	"testing"

	"curator/internal/config"
	"curator/internal/storage"
)

// MustOpenStore opens the shared SQLite store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *storage.Store {
	t.Helper()

	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
