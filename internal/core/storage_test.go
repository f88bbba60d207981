package core

import (
	"path/filepath"
	"testing"

	"storagecore/internal/infra/persistence/memory"
	"storagecore/internal/infra/persistence/sqlite"
)

func TestOpenCatalogStoreMemory(t *testing.T) {
	store, err := OpenCatalogStore(CatalogMemory, "", nil)
	if err != nil {
		t.Fatalf("OpenCatalogStore: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("unexpected store type %T", store)
	}
}

func TestOpenCatalogStoreDefaultsToSQLite(t *testing.T) {
	t.Setenv("STORAGECORE_CATALOG_DRIVER", "")
	path := filepath.Join(t.TempDir(), "catalog.db")
	t.Setenv("STORAGECORE_SQLITE_PATH", path)

	store, err := OpenCatalogStore("", "", nil)
	if err != nil {
		t.Fatalf("OpenCatalogStore: %v", err)
	}
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}
	defer func() { _ = s.Close() }()
	if s.Path() != path {
		t.Fatalf("sqlite path = %q, want %q", s.Path(), path)
	}
}

func TestOpenCatalogStoreUnknownDriver(t *testing.T) {
	if _, err := OpenCatalogStore("etcd", "", nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
