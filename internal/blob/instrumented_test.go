package blob

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storagecore/internal/infra/blob/memory"
)

type captureRecorder struct {
	mu        sync.Mutex
	durations map[string]int
	results   map[string]int
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{durations: make(map[string]int), results: make(map[string]int)}
}

func (r *captureRecorder) ObserveDuration(operation string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation]++
}

func (r *captureRecorder) IncResult(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[operation+"/"+status]++
}

func TestInstrumentedStoreDelegates(t *testing.T) {
	rec := newCaptureRecorder()
	s := Instrument(memory.New(), rec, zerolog.Nop())
	ctx := context.Background()

	if s.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}

	if _, err := s.Put(ctx, "k", strings.NewReader("v"), PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Head(ctx, "k"); err != nil {
		t.Fatalf("Head: %v", err)
	}
	_, rc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = rc.Close()
	if _, err := s.List(ctx, ""); err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, op := range []string{"put", "head", "get", "list", "delete"} {
		if rec.durations[op] != 1 {
			t.Errorf("operation %s recorded %d durations, want 1", op, rec.durations[op])
		}
		if rec.results[op+"/ok"] != 1 {
			t.Errorf("operation %s recorded %d ok results, want 1", op, rec.results[op+"/ok"])
		}
	}
}

func TestInstrumentedStoreRecordsErrors(t *testing.T) {
	rec := newCaptureRecorder()
	s := Instrument(memory.New(), rec, zerolog.Nop())
	ctx := context.Background()

	if _, _, err := s.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound through wrapper, got %v", err)
	}
	if _, err := s.PresignURL(ctx, "absent", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported through wrapper, got %v", err)
	}

	if rec.results["get/error"] != 1 {
		t.Errorf("get error not recorded: %+v", rec.results)
	}
	if rec.results["presign/error"] != 1 {
		t.Errorf("presign error not recorded: %+v", rec.results)
	}
}

func TestInstrumentedStoreNilRecorder(t *testing.T) {
	s := Instrument(memory.New(), nil, zerolog.Nop())
	if _, err := s.Put(context.Background(), "k", strings.NewReader("v"), PutOptions{}); err != nil {
		t.Fatalf("Put with nil recorder: %v", err)
	}
}
