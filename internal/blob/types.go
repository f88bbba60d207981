// Package blob re-exports core storage abstractions for stable internal imports
// and hosts the driver factory.
package blob

import (
	"storagecore/internal/blob/core"
)

type (
	// Driver identifies a storage backend driver.
	Driver = core.Driver
	// PutOptions configures an object write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverDropbox is the Dropbox driver.
	DriverDropbox = core.DriverDropbox
	// DriverGitHub is the GitHub contents driver.
	DriverGitHub = core.DriverGitHub
	// DriverGoogleDrive is the Google Drive driver.
	DriverGoogleDrive = core.DriverGoogleDrive
)

var (
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound indicates a missing object.
	ErrNotFound = core.ErrNotFound
	// ErrAlreadyExists indicates a create-only write conflict.
	ErrAlreadyExists = core.ErrAlreadyExists
)
