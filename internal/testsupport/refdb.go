package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"cratedig/internal/refdb"
)

// MustCreateRefDB creates a reference database fixture and registers cleanup.
func MustCreateRefDB(t testing.TB, recordings ...refdb.Recording) *refdb.Store {
	t.Helper()

	store, err := refdb.Create(filepath.Join(t.TempDir(), "refdb.sqlite"))
	if err != nil {
		t.Fatalf("refdb.Create: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, rec := range recordings {
		if _, err := store.Insert(context.Background(), rec); err != nil {
			t.Fatalf("refdb.Insert: %v", err)
		}
	}
	return store
}
