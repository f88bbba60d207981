// Package core defines the abstractions every storage backend implements.
// Higher layers depend on these types only, never on a concrete backend.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
	// DriverDropbox represents the Dropbox content API implementation.
	DriverDropbox Driver = "dropbox"
	// DriverGitHub represents the GitHub repository contents implementation.
	DriverGitHub Driver = "github"
	// DriverGoogleDrive represents the Google Drive files API implementation.
	DriverGoogleDrive Driver = "googledrive"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method  string        // GET|PUT (currently only GET used internally)
	Expiry  time.Duration // default 15m
	Headers map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the interface all storage backends satisfy. Writes are
// create-only: Put fails with ErrAlreadyExists when the key is taken.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("storage: unsupported operation")

// ErrNotFound is returned when a key does not exist in the backend.
var ErrNotFound = errors.New("storage: object not found")

// ErrAlreadyExists is returned when Put targets an existing key.
var ErrAlreadyExists = errors.New("storage: object already exists")

// NotFound wraps ErrNotFound with the offending key.
func NotFound(key string) error {
	return fmt.Errorf("object %s: %w", key, ErrNotFound)
}

// AlreadyExists wraps ErrAlreadyExists with the offending key.
func AlreadyExists(key string) error {
	return fmt.Errorf("object %s: %w", key, ErrAlreadyExists)
}

// CloneMetadata returns a defensive copy of user metadata.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
