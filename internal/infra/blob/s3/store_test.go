package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"storagecore/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := NewMockForTests()
	ctx := context.Background()

	info, err := s.Put(ctx, "docs/a.txt", strings.NewReader("hello"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Key != "docs/a.txt" || info.Size != 5 {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := s.Get(ctx, "docs/a.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}
	if got.ContentType != "text/plain" {
		t.Fatalf("unexpected content type %q", got.ContentType)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	s := NewMockForTests()
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := s.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{})
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := NewMockForTests()
	if _, _, err := s.Get(context.Background(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(context.Background(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Head, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewMockForTests()
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	existed, err := s.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	if _, err := s.Head(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("object survived delete: %v", err)
	}
}

func TestListWithPrefix(t *testing.T) {
	s := NewMockForTests()
	ctx := context.Background()

	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "a/1" || infos[1].Key != "a/2" {
		t.Fatalf("unexpected listing %+v", infos)
	}
}

func TestPresignURL(t *testing.T) {
	s := NewMockForTests()
	ctx := context.Background()

	url, err := s.PresignURL(ctx, "k", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}
	if !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("expected signed URL, got %q", url)
	}

	if _, err := s.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for PUT presign, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}
