package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/observability"
	"github.com/matzehuels/panelmap/pkg/snapshot"
)

// keyTypeDump labels dump entries in cache hooks.
const keyTypeDump = "dump"

// Runner executes dumps with caching. It holds no per-dump state, so one
// Runner can serve concurrent requests with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer means DefaultKeyer, a nil cache
// disables caching, and a nil logger means log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Dump computes the panel list of snap without consulting the cache.
func (r *Runner) Dump(ctx context.Context, snap *snapshot.Snapshot, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	res, err := Dump(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	if h, err := snap.Hash(); err == nil {
		res.SnapshotHash = h
	}
	r.Logger.Debug("dump computed",
		"windows", res.Stats.Windows,
		"tabs", res.Stats.Tabs,
		"panes", res.Stats.Panes,
		"matched", res.Stats.Matched,
		"duration", res.Stats.Duration)
	return res, nil
}

// DumpWithCache returns the cached dump of snap when one exists for the same
// snapshot content and options, and otherwise computes and stores it.
// Cache failures are logged and never fail the dump.
func (r *Runner) DumpWithCache(ctx context.Context, snap *snapshot.Snapshot, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)
	opts.SetDefaults()
	if snap == nil {
		return r.Dump(ctx, snap, opts)
	}

	hash, err := snap.Hash()
	if err != nil {
		return nil, err
	}
	key := r.Keyer.DumpKey(hash, opts.DumpKeyOpts())
	hooks := observability.Cache()

	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("cache lookup failed", "error", err)
		case hit:
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				hooks.OnCacheHit(ctx, keyTypeDump)
				cached.CacheHit = true
				cached.SnapshotHash = hash
				r.Logger.Debug("dump cache hit", "snapshot", shortHash(hash))
				return &cached, nil
			}
			r.Logger.Debug("discarding unreadable cache entry", "key", key)
		}
		hooks.OnCacheMiss(ctx, keyTypeDump)
	}

	res, err := r.Dump(ctx, snap, opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, opts.CacheTTL); err != nil {
			r.Logger.Warn("cache store failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeDump, len(data))
		}
	}
	return res, nil
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
