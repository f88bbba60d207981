// Package github provides the GitHub storage backend plugin.
package github

import (
	"context"
	"fmt"

	"storagecore/pkg/storageapi"
)

// maxContentSize is the largest blob the contents API accepts.
const maxContentSize = 100 << 20

// Plugin wires the github driver and its size-limit rule into a host registry.
type Plugin struct{}

// New constructs a github plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "github" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register contributes the github driver and the content-size rule.
func (Plugin) Register(registry storageapi.Registry) error {
	err := registry.RegisterDriver("github", func(_ context.Context, settings storageapi.Settings) (storageapi.Store, error) {
		return NewStore(settings.Token, settings.Extra)
	})
	if err != nil {
		return err
	}
	registry.RegisterRule(ContentSizeRule{})
	return nil
}

// ContentSizeRule blocks objects larger than the contents API can store.
type ContentSizeRule struct{}

// Name returns the rule identifier.
func (ContentSizeRule) Name() string { return "github_content_size" }

// Evaluate flags put operations whose payload exceeds the API limit.
func (ContentSizeRule) Evaluate(_ context.Context, change storageapi.Change) []storageapi.Violation {
	if change.Operation != "put" {
		return nil
	}
	if change.Info.Size <= maxContentSize {
		return nil
	}
	return []storageapi.Violation{{
		Rule:     "github_content_size",
		Severity: storageapi.SeverityBlock,
		Message:  fmt.Sprintf("object %s is %d bytes; the contents API caps files at %d bytes", change.Info.Key, change.Info.Size, maxContentSize),
	}}
}

var (
	_ storageapi.Plugin = Plugin{}
	_ storageapi.Rule   = ContentSizeRule{}
)
