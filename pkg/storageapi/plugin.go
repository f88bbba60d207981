// Package storageapi is the stable contract between storagecore and external
// storage plugins. Plugins may import this package (and nothing internal);
// the boundary is enforced by architecture tests.
package storageapi

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors drivers return so the host can translate them uniformly.
var (
	// ErrUnsupported indicates an optional capability is not available.
	ErrUnsupported = errors.New("storageapi: unsupported operation")
	// ErrNotFound indicates a missing object.
	ErrNotFound = errors.New("storageapi: object not found")
	// ErrAlreadyExists indicates a create-only write conflict.
	ErrAlreadyExists = errors.New("storageapi: object already exists")
)

// Driver identifies a storage backend driver contributed by a plugin.
type Driver string

// PutOptions configures an object write.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions configures URL pre-signing.
type SignedURLOptions struct {
	Method  string
	Expiry  time.Duration
	Headers map[string]string
}

// Info describes stored object metadata.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the storage backend contract a plugin driver fulfills.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// Settings carries the shared construction parameters handed to openers.
type Settings struct {
	Token string            // bearer credential for API-backed drivers
	Extra map[string]string // driver-specific options (repo coordinates, folder ids)
}

// Opener constructs a Store for the plugin's driver.
type Opener func(ctx context.Context, settings Settings) (Store, error)

// Rule validates a pending catalog change. Violations with a blocking
// severity abort the transaction.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, change Change) []Violation
}

// Change describes a catalog mutation under rule evaluation.
type Change struct {
	Operation string // put|delete
	Info      Info
}

// Severity grades a rule violation.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Violation reports a rule failure.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Key      string   `json:"key,omitempty"`
}

// Registry accumulates plugin contributions during registration. Kept small
// on purpose: a plugin implements only what it can wholly fulfill.
type Registry interface {
	RegisterDriver(driver Driver, opener Opener) error
	RegisterRule(rule Rule)
}

// Plugin describes an external storage backend module.
type Plugin interface {
	Name() string
	Version() string
	Register(Registry) error
}

// Version is the storageapi contract version.
const Version = "v1"
