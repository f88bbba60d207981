package blob

import (
	"context"
	"strings"
	"testing"
)

func TestNewFactorySeedsBuiltins(t *testing.T) {
	f := NewFactory()
	drivers := f.Drivers()
	want := map[Driver]bool{DriverFilesystem: true, DriverMemory: true, DriverS3: true}
	for _, d := range drivers {
		delete(want, d)
	}
	if len(want) != 0 {
		t.Fatalf("missing builtin drivers: %v (got %v)", want, drivers)
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	f := NewFactory()
	store, err := f.Open(context.Background(), DriverMemory, Settings{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestOpenFilesystemDriver(t *testing.T) {
	f := NewFactory()
	store, err := f.Open(context.Background(), DriverFilesystem, Settings{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	f := NewFactory()
	_, err := f.Open(context.Background(), "tape", Settings{})
	if err == nil || !strings.Contains(err.Error(), "unknown blob driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestOpenDriverFromEnv(t *testing.T) {
	t.Setenv("STORAGECORE_BLOB_DRIVER", "memory")
	f := NewFactory()
	store, err := f.Open(context.Background(), "", Settings{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("env driver selection failed, got %s", store.Driver())
	}
}

func TestRegisterNewDriver(t *testing.T) {
	f := NewFactory()
	opener := func(context.Context, Settings) (Store, error) { return nil, nil }

	if err := f.Register("custom", opener); err != nil {
		t.Fatalf("Register: %v", err)
	}
	found := false
	for _, d := range f.Drivers() {
		if d == "custom" {
			found = true
		}
	}
	if !found {
		t.Fatal("registered driver missing from Drivers()")
	}
}

func TestRegisterRejectsDuplicatesAndNil(t *testing.T) {
	f := NewFactory()
	opener := func(context.Context, Settings) (Store, error) { return nil, nil }

	if err := f.Register(DriverMemory, opener); err == nil {
		t.Fatal("expected error re-registering builtin driver")
	}
	if err := f.Register("", opener); err == nil {
		t.Fatal("expected error for empty driver name")
	}
	if err := f.Register("custom", nil); err == nil {
		t.Fatal("expected error for nil opener")
	}
}

func TestFactoriesAreIndependent(t *testing.T) {
	a := NewFactory()
	b := NewFactory()
	opener := func(context.Context, Settings) (Store, error) { return nil, nil }

	if err := a.Register("custom", opener); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := b.Open(context.Background(), "custom", Settings{}); err == nil {
		t.Fatal("driver registered in one factory leaked into another")
	}
}
