package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"storagecore/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	info, err := s.Put(ctx, "a/b", strings.NewReader("payload"), core.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"owner": "tests"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Size != 7 || info.ContentType != "text/plain" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := s.Get(ctx, "a/b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
	if got.Metadata["owner"] != "tests" {
		t.Fatalf("metadata not preserved: %+v", got.Metadata)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", strings.NewReader("v1"), core.PutOptions{}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	_, err := s.Put(ctx, "k", strings.NewReader("v2"), core.PutOptions{})
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetReturnsIsolatedCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	first, _, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	first.Metadata["a"] = "mutated"

	second, err := s.Head(ctx, "k")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if second.Metadata["a"] != "1" {
		t.Fatalf("stored metadata was mutated through a returned copy: %+v", second.Metadata)
	}
}

func TestMissingKeys(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, _, err := s.Get(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Head: expected ErrNotFound, got %v", err)
	}
	existed, err := s.Delete(ctx, "absent")
	if err != nil || existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
}

func TestListSortedWithPrefix(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, key := range []string{"b/2", "a/1", "b/1"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "b/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "b/1" || infos[1].Key != "b/2" {
		t.Fatalf("unexpected listing %+v", infos)
	}
}

func TestPresignUnsupported(t *testing.T) {
	s := New()
	if _, err := s.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
