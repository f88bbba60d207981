// Package dropbox provides the Dropbox storage backend plugin.
package dropbox

import (
	"context"

	"storagecore/pkg/storageapi"
)

// Plugin wires the dropbox driver into a host registry.
type Plugin struct{}

// New constructs a dropbox plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "dropbox" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register contributes the dropbox driver.
func (Plugin) Register(registry storageapi.Registry) error {
	return registry.RegisterDriver("dropbox", func(_ context.Context, settings storageapi.Settings) (storageapi.Store, error) {
		return NewStore(settings.Token, settings.Extra)
	})
}

var _ storageapi.Plugin = Plugin{}
