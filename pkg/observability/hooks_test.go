package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnDumpStart(ctx, 2)
	p.OnDumpComplete(ctx, 8, 2, time.Millisecond, nil)
	p.OnTabError(ctx, 1, 3, "INVALID_TREE")

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "dump")
	c.OnCacheMiss(ctx, "dump")
	c.OnCacheSet(ctx, "render", 1024)

	k := NoopControlHooks{}
	k.OnCommand(ctx, "ping")
	k.OnResponse(ctx, "ping", true, time.Millisecond)
	k.OnError(ctx, "ping", errors.New("closed"))
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Control().(NoopControlHooks); !ok {
		t.Error("Control() should return NoopControlHooks by default")
	}

	customPipeline := &countingPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customControl := &testControlHooks{}
	SetControlHooks(customControl)
	if Control() != customControl {
		t.Error("SetControlHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &countingPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

func TestHooksReceiveEventsWhileSwapping(t *testing.T) {
	Reset()
	defer Reset()

	h := &countingPipelineHooks{}
	SetPipelineHooks(h)

	var wg sync.WaitGroup
	for tab := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Pipeline().OnTabError(context.Background(), 1, tab, "INVALID_TREE")
		}()
		go func() {
			defer wg.Done()
			SetPipelineHooks(h)
			_ = Cache()
		}()
	}
	wg.Wait()

	if got := h.tabErrors(); got != 10 {
		t.Errorf("tab errors = %d, want 10", got)
	}
}

type countingPipelineHooks struct {
	NoopPipelineHooks
	mu     sync.Mutex
	errors int
}

func (h *countingPipelineHooks) OnTabError(context.Context, int, int, string) {
	h.mu.Lock()
	h.errors++
	h.mu.Unlock()
}

func (h *countingPipelineHooks) tabErrors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errors
}

type testCacheHooks struct{ NoopCacheHooks }
type testControlHooks struct{ NoopControlHooks }
