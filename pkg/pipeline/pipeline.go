// Package pipeline turns a captured snapshot into the flat per-pane panel list.
//
// # Stages
//
// For every window, and every tab within it:
//
//  1. The tab's tree is validated. A malformed tree is recorded as a
//     [TabError]; its panes are still listed, without layout data.
//  2. [layout.Assign] reconstructs absolute pane frames.
//  3. [spatial.Rank] orders panes in reading order.
//  4. The window frame is matched once against the OS window list.
//
// The per-pane results are merged into [Record] values sorted by window, tab,
// rank (unranked panes last) and pane id.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.DumpWithCache(ctx, snap, pipeline.Options{Owners: []string{"iTerm2"}})
//	if err != nil {
//	    return err
//	}
//	for _, p := range res.Panels {
//	    fmt.Println(p.Title, p.PaneID)
//	}
//
// Windows are independent and evaluated concurrently, bounded by
// [Options.Workers].
package pipeline

import (
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/layout"
	"github.com/matzehuels/panelmap/pkg/match"
)

// DefaultOwners are the OS window owners the terminal host reports for its
// own windows.
var DefaultOwners = []string{"iTerm", "iTerm2"}

// =============================================================================
// Options
// =============================================================================

// Options configures a dump.
type Options struct {
	// Precision is the decimal precision used to compare leading
	// coordinates. Zero means layout.DefaultPrecision and
	// layout.WholeNumbers compares integers.
	Precision int `json:"precision,omitempty"`

	// Tolerances bound window matching. Nil means match.DefaultTolerances;
	// a non-nil value is used as given.
	Tolerances *match.Tolerances `json:"tolerances,omitempty"`

	// Owners restricts match candidates to these OS window owners.
	// Empty keeps every candidate.
	Owners []string `json:"owners,omitempty"`

	// Workers bounds how many windows are processed concurrently.
	// Zero means runtime.NumCPU.
	Workers int `json:"workers,omitempty"`

	// CacheTTL is how long a cached dump stays valid. Zero means cache.TTLDump.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// Refresh skips the cache lookup but still stores the fresh result.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero fields with their defaults.
func (o *Options) SetDefaults() {
	if o.Precision == 0 {
		o.Precision = layout.DefaultPrecision
	}
	if o.Tolerances == nil {
		t := match.DefaultTolerances()
		o.Tolerances = &t
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = cache.TTLDump
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate rejects negative settings.
func (o *Options) Validate() error {
	if o.Precision < layout.WholeNumbers {
		return errors.New(errors.ErrCodeInvalidInput, "precision must be %d or greater, got %d", layout.WholeNumbers, o.Precision)
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be non-negative, got %d", o.Workers)
	}
	if o.CacheTTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl must be non-negative, got %s", o.CacheTTL)
	}
	if o.Tolerances == nil {
		return nil
	}
	return o.Tolerances.Validate()
}

// DumpKeyOpts returns the cache key inputs for o. Owner order does not
// affect the key.
func (o *Options) DumpKeyOpts() cache.DumpKeyOpts {
	owners := slices.Clone(o.Owners)
	slices.Sort(owners)
	t := match.DefaultTolerances()
	if o.Tolerances != nil {
		t = *o.Tolerances
	}
	return cache.DumpKeyOpts{
		Precision:  o.Precision,
		Tolerances: []float64{t.MaxWidthDelta, t.MaxHeightDelta, t.MaxXDelta, t.MaxYDelta, t.SizeWeight, t.PositionWeight},
		Owners:     owners,
	}
}

// =============================================================================
// Results
// =============================================================================

// Record is the flat description of one pane.
type Record struct {
	WindowIndex      int        `json:"window_index"`
	TabIndex         int        `json:"tab_index"`
	PaneID           string     `json:"pane_id"`
	Name             string     `json:"name"`
	Title            string     `json:"title"`
	SpatialRank      *int       `json:"spatial_rank"`
	MatchedWindowID  *int64     `json:"matched_window_id"`
	WindowFrame      *geom.Rect `json:"window_frame"`
	PaneFrame        *geom.Rect `json:"pane_frame"`
	LayoutFrame      *geom.Rect `json:"layout_frame"`
	LayoutCanvasSize *geom.Size `json:"layout_canvas_size"`
}

// TabError records a tab whose tree could not be laid out.
type TabError struct {
	Window  int         `json:"window_index"`
	Tab     int         `json:"tab_index"`
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// Stats summarizes a dump.
type Stats struct {
	Windows  int           `json:"windows"`
	Tabs     int           `json:"tabs"`
	Panes    int           `json:"panes"`
	Matched  int           `json:"matched_windows"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the output of a dump.
type Result struct {
	Panels       []Record   `json:"panels"`
	Errors       []TabError `json:"errors,omitempty"`
	Stats        Stats      `json:"stats"`
	SnapshotHash string     `json:"snapshot_hash,omitempty"`
	CacheHit     bool       `json:"cache_hit"`
}

// Tab returns the records of one tab in output order.
func (r *Result) Tab(window, tab int) []Record {
	var out []Record
	for _, p := range r.Panels {
		if p.WindowIndex == window && p.TabIndex == tab {
			out = append(out, p)
		}
	}
	return out
}
