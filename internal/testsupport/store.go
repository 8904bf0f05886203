package testsupport

import (
	"context"
	"testing"

	"packflow/internal/catalog"
	"packflow/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewPackage inserts a fresh pending package for tests using the provided
// store.
func NewPackage(t testing.TB, store *catalog.Store, name, kind string) *catalog.Package {
	t.Helper()

	pkg := &catalog.Package{
		State:            catalog.StatePending,
		LastState:        catalog.StatePending,
		LastTransition:   catalog.TransitionCopyPackage,
		OriginalFileName: name,
		PackageType:      kind,
	}
	if err := store.Insert(context.Background(), pkg); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return pkg
}
