package config

import "sync"

// runtimeState holds mutable operational flags. Every Runtime handle shares
// this one state, so a flag flipped through any handle is visible everywhere.
var runtimeState = struct {
	mu        sync.RWMutex
	readOnly  bool
	presignOn bool
}{presignOn: true}

// Runtime is a handle onto the process-wide operational flags. Handles are
// cheap to copy; they all observe and mutate the same shared state.
type Runtime struct{}

// NewRuntime returns a handle onto the shared runtime flags.
func NewRuntime() Runtime { return Runtime{} }

// SetReadOnly toggles read-only mode. While set, mutating API operations are
// rejected without touching the backend.
func (Runtime) SetReadOnly(v bool) {
	runtimeState.mu.Lock()
	defer runtimeState.mu.Unlock()
	runtimeState.readOnly = v
}

// ReadOnly reports whether read-only mode is active.
func (Runtime) ReadOnly() bool {
	runtimeState.mu.RLock()
	defer runtimeState.mu.RUnlock()
	return runtimeState.readOnly
}

// SetPresignEnabled toggles URL pre-signing.
func (Runtime) SetPresignEnabled(v bool) {
	runtimeState.mu.Lock()
	defer runtimeState.mu.Unlock()
	runtimeState.presignOn = v
}

// PresignEnabled reports whether URL pre-signing is allowed.
func (Runtime) PresignEnabled() bool {
	runtimeState.mu.RLock()
	defer runtimeState.mu.RUnlock()
	return runtimeState.presignOn
}

// ResetRuntime restores the default flags. Intended for tests.
func ResetRuntime() {
	runtimeState.mu.Lock()
	defer runtimeState.mu.Unlock()
	runtimeState.readOnly = false
	runtimeState.presignOn = true
}
