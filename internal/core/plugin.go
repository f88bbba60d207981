package core

import (
	"fmt"
	"sort"

	"storagecore/internal/blob"
	"storagecore/internal/catalog"
	"storagecore/pkg/storageapi"
)

// PluginRegistry accumulates plugin contributions during registration.
// It implements storageapi.Registry and adapts the stable API types onto the
// internal blob and catalog types.
type PluginRegistry struct {
	drivers map[blob.Driver]blob.Opener
	rules   []catalog.Rule
}

// NewPluginRegistry constructs an empty plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{drivers: make(map[blob.Driver]blob.Opener)}
}

// RegisterDriver records a driver opener contributed by the plugin.
func (r *PluginRegistry) RegisterDriver(driver storageapi.Driver, opener storageapi.Opener) error {
	if driver == "" || opener == nil {
		return fmt.Errorf("driver and opener required")
	}
	d := blob.Driver(driver)
	if _, exists := r.drivers[d]; exists {
		return fmt.Errorf("driver %s already registered", driver)
	}
	r.drivers[d] = adaptOpener(opener)
	return nil
}

// RegisterRule records a catalog rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule storageapi.Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, adaptRule(rule))
}

// Drivers returns registered drivers keyed by name.
func (r *PluginRegistry) Drivers() map[blob.Driver]blob.Opener {
	out := make(map[blob.Driver]blob.Opener, len(r.drivers))
	for d, o := range r.drivers {
		out[d] = o
	}
	return out
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []catalog.Rule {
	out := make([]catalog.Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

var _ storageapi.Registry = (*PluginRegistry)(nil)

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Drivers []string `json:"drivers,omitempty"`
	Rules   []string `json:"rules,omitempty"`
}

func metadataFor(plugin storageapi.Plugin, registry *PluginRegistry) PluginMetadata {
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version()}
	for d := range registry.drivers {
		meta.Drivers = append(meta.Drivers, string(d))
	}
	sort.Strings(meta.Drivers)
	for _, rule := range registry.rules {
		meta.Rules = append(meta.Rules, rule.Name())
	}
	sort.Strings(meta.Rules)
	return meta
}
