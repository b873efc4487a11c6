package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/observability"
)

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingCacheHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestDumpWithCache(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	ctx := context.Background()

	first, err := r.DumpWithCache(ctx, gridSnapshot(), Options{})
	if err != nil {
		t.Fatalf("first dump: %v", err)
	}
	if first.CacheHit {
		t.Error("first dump should miss")
	}
	if first.SnapshotHash == "" {
		t.Error("snapshot hash not set")
	}

	second, err := r.DumpWithCache(ctx, gridSnapshot(), Options{})
	if err != nil {
		t.Fatalf("second dump: %v", err)
	}
	if !second.CacheHit {
		t.Error("second dump should hit")
	}
	if len(second.Panels) != len(first.Panels) || second.Panels[3].Title != first.Panels[3].Title {
		t.Error("cached panels differ from computed panels")
	}
	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks hit=%d miss=%d set=%d", hooks.hits, hooks.misses, hooks.sets)
	}

	// different options are a different key
	third, _ := r.DumpWithCache(ctx, gridSnapshot(), Options{Precision: 5})
	if third.CacheHit {
		t.Error("different precision should miss")
	}

	refreshed, _ := r.DumpWithCache(ctx, gridSnapshot(), Options{Refresh: true})
	if refreshed.CacheHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestDumpWithCacheCaptureTimeIgnored(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	r := NewRunner(c, nil, nil)
	ctx := context.Background()

	s1 := gridSnapshot()
	s1.CapturedAt = time.Unix(100, 0)
	s2 := gridSnapshot()
	s2.CapturedAt = time.Unix(200, 0)

	if _, err := r.DumpWithCache(ctx, s1, Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := r.DumpWithCache(ctx, s2, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheHit {
		t.Error("same layout captured later should hit the cache")
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Logger == nil {
		t.Fatal("NewRunner should fill defaults")
	}
	res, err := r.DumpWithCache(context.Background(), gridSnapshot(), Options{})
	if err != nil || res.CacheHit {
		t.Errorf("null cache dump: hit=%v err=%v", res != nil && res.CacheHit, err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
