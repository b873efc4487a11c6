// Package observability lets binaries attach metrics to library events.
//
// Libraries call the registered hooks; the binary decides what backs them.
// The defaults are no-ops, so importing a library never pulls in a metrics
// backend. The HTTP service registers Prometheus-backed hooks at startup:
//
//	observability.SetPipelineHooks(metrics)
//	observability.SetCacheHooks(metrics)
//	observability.SetControlHooks(metrics)
//
// and the dump pipeline reports through them:
//
//	observability.Pipeline().OnDumpStart(ctx, len(snap.Windows))
//	// ... compute ...
//	observability.Pipeline().OnDumpComplete(ctx, panes, matched, time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the dump pipeline.
type PipelineHooks interface {
	OnDumpStart(ctx context.Context, windows int)
	OnDumpComplete(ctx context.Context, panes, matched int, duration time.Duration, err error)

	// OnTabError fires once per tab whose tree failed validation.
	OnTabError(ctx context.Context, window, tab int, code string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Control Hooks
// =============================================================================

// ControlHooks receives events from the capture controller client.
type ControlHooks interface {
	OnCommand(ctx context.Context, cmd string)
	OnResponse(ctx context.Context, cmd string, success bool, duration time.Duration)
	OnError(ctx context.Context, cmd string, err error)
}

// =============================================================================
// No-op Defaults
// =============================================================================

// NoopPipelineHooks ignores every event. Embed it to implement only some
// hooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnDumpStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnDumpComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnTabError(context.Context, int, int, string)                   {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopControlHooks ignores every event.
type NoopControlHooks struct{}

func (NoopControlHooks) OnCommand(context.Context, string)                       {}
func (NoopControlHooks) OnResponse(context.Context, string, bool, time.Duration) {}
func (NoopControlHooks) OnError(context.Context, string, error)                  {}

// =============================================================================
// Registry
// =============================================================================

// slot holds one registered hook set, falling back to noop when empty.
type slot[T any] struct {
	p    atomic.Pointer[T]
	noop T
}

func (s *slot[T]) get() T {
	if h := s.p.Load(); h != nil {
		return *h
	}
	return s.noop
}

func (s *slot[T]) set(h T) { s.p.Store(&h) }

func (s *slot[T]) reset() { s.p.Store(nil) }

var (
	pipelineSlot = slot[PipelineHooks]{noop: NoopPipelineHooks{}}
	cacheSlot    = slot[CacheHooks]{noop: NoopCacheHooks{}}
	controlSlot  = slot[ControlHooks]{noop: NoopControlHooks{}}
)

// SetPipelineHooks registers pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		pipelineSlot.set(h)
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.set(h)
	}
}

// SetControlHooks registers controller client hooks. Nil is ignored.
func SetControlHooks(h ControlHooks) {
	if h != nil {
		controlSlot.set(h)
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// Control returns the registered controller client hooks.
func Control() ControlHooks { return controlSlot.get() }

// Reset restores all hooks to their no-op defaults.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	controlSlot.reset()
}
