// Package googledrive provides the Google Drive storage backend plugin.
package googledrive

import (
	"context"

	"storagecore/pkg/storageapi"
)

// Plugin wires the googledrive driver into a host registry.
type Plugin struct{}

// New constructs a googledrive plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "googledrive" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register contributes the googledrive driver.
func (Plugin) Register(registry storageapi.Registry) error {
	return registry.RegisterDriver("googledrive", func(_ context.Context, settings storageapi.Settings) (storageapi.Store, error) {
		return NewStore(settings.Token, settings.Extra)
	})
}

var _ storageapi.Plugin = Plugin{}
