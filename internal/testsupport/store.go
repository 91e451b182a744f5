package testsupport

import (
	"context"
	"testing"

	"driveingest/internal/config"
	"driveingest/internal/store"
)

// MustOpenStore opens the SQLite store named by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
