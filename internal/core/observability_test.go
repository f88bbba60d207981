package core

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderSnapshot(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")

	rec.ObserveDuration("put_object", 250*time.Millisecond)
	rec.ObserveDuration("put_object", 750*time.Millisecond)
	rec.IncResult("put_object", "ok")
	rec.IncResult("put_object", "ok")
	rec.IncResult("put_object", "error")

	snap := rec.Snapshot()
	if got := snap.DurationsMS["put_object"]; got != 1000 {
		t.Fatalf("duration total = %v ms, want 1000", got)
	}
	if snap.Results["put_object"]["ok"] != 2 || snap.Results["put_object"]["error"] != 1 {
		t.Fatalf("unexpected result counts %+v", snap.Results)
	}
	if snap.RecordedAt.IsZero() {
		t.Fatal("snapshot missing timestamp")
	}

	// Snapshot copies must not alias internal state.
	snap.Results["put_object"]["ok"] = 99
	if rec.Snapshot().Results["put_object"]["ok"] != 2 {
		t.Fatal("snapshot mutation leaked into recorder")
	}
}

func TestExpvarMetricsRecorderGeneratesUniqueNames(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewExpvarMetricsRecorder("")
	if a.Name() == b.Name() {
		t.Fatalf("generated names collide: %s", a.Name())
	}
	if !strings.HasPrefix(a.Name(), "storage_service_metrics_") {
		t.Fatalf("unexpected generated name %s", a.Name())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(registry)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}

	rec.ObserveDuration("get_object", 10*time.Millisecond)
	rec.IncResult("get_object", "ok")
	rec.IncResult("get_object", "error")

	if got := testutil.ToFloat64(rec.results.WithLabelValues("get_object", "ok")); got != 1 {
		t.Fatalf("ok counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("get_object", "error")); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(rec.durations); got != 1 {
		t.Fatalf("histogram series = %d, want 1", got)
	}

	// Registering into the same registry twice collides on collector names.
	if _, err := NewPrometheusMetricsRecorder(registry); err == nil {
		t.Fatal("duplicate registration must fail")
	}
}
