// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about tree edits, reconciliation passes, token traffic and
// clipboard operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The HTTP server registers Prometheus-backed hooks; the CLI and the terminal
// editor run with the no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEditHooks(&myEditHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	// ... mutate the store ...
//	observability.Edit().OnMutation("add_child", time.Since(start), err)
package observability

import (
	"sync"
	"time"
)

// =============================================================================
// Edit Hooks
// =============================================================================

// EditHooks receives events from tree mutations and connectivity passes.
type EditHooks interface {
	// OnMutation records a compound edit (add_child, remove_node, split_edge, ...).
	OnMutation(op string, duration time.Duration, err error)

	// OnReconcile records a reconciliation pass and how many orphans it linked.
	OnReconcile(orphans, linked int, duration time.Duration)
}

// =============================================================================
// Token Hooks
// =============================================================================

// TokenHooks receives events from token export and import.
type TokenHooks interface {
	// OnExport records a successful export and the token size in bytes.
	OnExport(nodes, connections, size int)

	// OnImport records an import attempt. skipped counts connections
	// dropped for referencing unknown nodes.
	OnImport(nodes, connections, skipped int, err error)
}

// =============================================================================
// Clipboard Hooks
// =============================================================================

// ClipboardHooks receives events from token clipboard backends.
type ClipboardHooks interface {
	// OnWrite records a token written to a backend.
	OnWrite(backend string, size int, err error)

	// OnRead records a lookup by share code.
	OnRead(backend string, hit bool, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEditHooks is a no-op implementation of EditHooks.
type NoopEditHooks struct{}

func (NoopEditHooks) OnMutation(string, time.Duration, error) {}
func (NoopEditHooks) OnReconcile(int, int, time.Duration)     {}

// NoopTokenHooks is a no-op implementation of TokenHooks.
type NoopTokenHooks struct{}

func (NoopTokenHooks) OnExport(int, int, int)        {}
func (NoopTokenHooks) OnImport(int, int, int, error) {}

// NoopClipboardHooks is a no-op implementation of ClipboardHooks.
type NoopClipboardHooks struct{}

func (NoopClipboardHooks) OnWrite(string, int, error) {}
func (NoopClipboardHooks) OnRead(string, bool, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	editHooks      EditHooks      = NoopEditHooks{}
	tokenHooks     TokenHooks     = NoopTokenHooks{}
	clipboardHooks ClipboardHooks = NoopClipboardHooks{}
	hooksMu        sync.RWMutex
)

// SetEditHooks registers custom edit hooks.
// This should be called once at application startup before any edits.
func SetEditHooks(h EditHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		editHooks = h
	}
}

// SetTokenHooks registers custom token hooks.
func SetTokenHooks(h TokenHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		tokenHooks = h
	}
}

// SetClipboardHooks registers custom clipboard hooks.
func SetClipboardHooks(h ClipboardHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		clipboardHooks = h
	}
}

// Edit returns the registered edit hooks.
func Edit() EditHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return editHooks
}

// Token returns the registered token hooks.
func Token() TokenHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return tokenHooks
}

// Clipboard returns the registered clipboard hooks.
func Clipboard() ClipboardHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return clipboardHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	editHooks = NoopEditHooks{}
	tokenHooks = NoopTokenHooks{}
	clipboardHooks = NoopClipboardHooks{}
}
