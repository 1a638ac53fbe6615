// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through package-level hook registries; the binary
// decides at startup what receives them. By default every hook is a no-op,
// so library code never depends on a metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    p := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    observability.SetResolveHooks(p)
//	    observability.SetCacheHooks(p)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Resolve().OnResolveStart(ctx, root)
//	// ... resolve ...
//	observability.Resolve().OnResolveComplete(ctx, root, n, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from dependency resolution.
type ResolveHooks interface {
	OnResolveStart(ctx context.Context, root string)
	OnResolveComplete(ctx context.Context, root string, packages int, duration time.Duration, err error)

	// OnShortfall records a package the target repository cannot satisfy.
	// reason is "missing" or "version".
	OnShortfall(ctx context.Context, name, reason string)
}

// =============================================================================
// Install Hooks
// =============================================================================

// InstallHooks receives events from install transactions.
type InstallHooks interface {
	OnInstallStep(ctx context.Context, kind, name string, duration time.Duration, err error)
	OnRollback(ctx context.Context, txnID string, steps int, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnResolveStart(context.Context, string)                               {}
func (NoopResolveHooks) OnResolveComplete(context.Context, string, int, time.Duration, error) {}
func (NoopResolveHooks) OnShortfall(context.Context, string, string)                          {}

// NoopInstallHooks is a no-op implementation of InstallHooks.
type NoopInstallHooks struct{}

func (NoopInstallHooks) OnInstallStep(context.Context, string, string, time.Duration, error) {}
func (NoopInstallHooks) OnRollback(context.Context, string, int, error)                      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks ResolveHooks = NoopResolveHooks{}
	installHooks InstallHooks = NoopInstallHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetResolveHooks registers custom resolve hooks.
// This should be called once at application startup before any resolution.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetInstallHooks registers custom install hooks.
func SetInstallHooks(h InstallHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		installHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Install returns the registered install hooks.
func Install() InstallHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return installHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	installHooks = NoopInstallHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
