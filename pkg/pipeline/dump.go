package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/layout"
	"github.com/matzehuels/panelmap/pkg/match"
	"github.com/matzehuels/panelmap/pkg/observability"
	"github.com/matzehuels/panelmap/pkg/snapshot"
	"github.com/matzehuels/panelmap/pkg/spatial"
	"github.com/matzehuels/panelmap/pkg/tree"
)

// Dump computes the panel list of snap without caching. Malformed tabs are
// reported in Result.Errors; only invalid options and context cancellation
// fail the dump.
func Dump(ctx context.Context, snap *snapshot.Snapshot, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.SetDefaults()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot, "snapshot is nil")
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnDumpStart(ctx, len(snap.Windows))

	res, err := dump(ctx, snap, opts)
	if err != nil {
		hooks.OnDumpComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	res.Stats.Duration = time.Since(start)
	hooks.OnDumpComplete(ctx, res.Stats.Panes, res.Stats.Matched, res.Stats.Duration, nil)
	return res, nil
}

type windowResult struct {
	records []Record
	errs    []TabError
	matched bool
}

func dump(ctx context.Context, snap *snapshot.Snapshot, opts Options) (*Result, error) {
	candidates := match.FilterOwners(snap.OSWindows, opts.Owners...)
	matcher := &match.Matcher{Tolerances: opts.Tolerances}
	assigner := layout.NewAssigner(layout.Options{Precision: opts.Precision})

	results := make([]windowResult, len(snap.Windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range snap.Windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wr, err := dumpWindow(gctx, i+1, snap.Windows[i], candidates, matcher, assigner, opts)
			if err != nil {
				return err
			}
			results[i] = wr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Panels: []Record{}}
	for _, wr := range results {
		res.Panels = append(res.Panels, wr.records...)
		res.Errors = append(res.Errors, wr.errs...)
		if wr.matched {
			res.Stats.Matched++
		}
	}
	SortRecords(res.Panels)

	res.Stats.Windows = len(snap.Windows)
	res.Stats.Tabs = snap.TabCount()
	res.Stats.Panes = len(res.Panels)
	return res, nil
}

func dumpWindow(ctx context.Context, wi int, w snapshot.Window, candidates []match.Descriptor, m *match.Matcher, a *layout.Assigner, opts Options) (windowResult, error) {
	var out windowResult

	var windowID *int64
	if r, ok := m.Match(w.Frame, candidates); ok {
		id := r.ID
		windowID = &id
		out.matched = true
	}

	for ti, tab := range w.Tabs {
		if err := ctx.Err(); err != nil {
			return windowResult{}, err
		}
		recs, err := dumpTab(wi, ti+1, tab, w.Frame, windowID, a)
		if err != nil {
			te := TabError{Window: wi, Tab: ti + 1, Code: errors.GetCode(err), Message: errors.UserMessage(err)}
			if te.Code == "" {
				te.Code = errors.ErrCodeInternal
			}
			out.errs = append(out.errs, te)
			opts.Logger.Warn("tab layout failed", "window", wi, "tab", ti+1, "code", te.Code, "error", te.Message)
			observability.Pipeline().OnTabError(ctx, wi, ti+1, string(te.Code))
		}
		out.records = append(out.records, recs...)
	}
	return out, nil
}

// dumpTab returns one record per pane. When the tree is malformed it still
// returns the records it can, without layout data, alongside the error.
func dumpTab(wi, ti int, tab snapshot.Tab, windowFrame *geom.Rect, windowID *int64, a *layout.Assigner) ([]Record, error) {
	panes := tree.Panes(tab.Root)
	records := make([]Record, 0, len(panes))
	for _, p := range panes {
		records = append(records, Record{
			WindowIndex:     wi,
			TabIndex:        ti,
			PaneID:          p.ID,
			Name:            p.Name,
			MatchedWindowID: windowID,
			WindowFrame:     windowFrame,
			PaneFrame:       p.Frame,
		})
	}

	if err := tree.Validate(tab.Root); err != nil {
		for i := range records {
			records[i].Title = Title(wi, ti, nil)
		}
		return records, err
	}

	frames := make(map[string]geom.Rect, len(panes))
	if err := a.AssignInto(tab.Root, 0, 0, frames); err != nil {
		for i := range records {
			records[i].Title = Title(wi, ti, nil)
		}
		return records, err
	}
	ranks := spatial.Rank(frames)

	var canvas *geom.Size
	if s, ok := layout.CanvasSize(tab.Root); ok {
		canvas = &s
	}

	for i := range records {
		r := &records[i]
		if f, ok := frames[r.PaneID]; ok {
			r.LayoutFrame = &f
		}
		if rank, ok := ranks[r.PaneID]; ok {
			r.SpatialRank = &rank
		}
		r.LayoutCanvasSize = canvas
		r.Title = Title(wi, ti, r.SpatialRank)
	}
	return records, nil
}

// Title returns the "window.tab.rank" label of a pane, with "?" for an
// unranked pane.
func Title(window, tab int, rank *int) string {
	r := "?"
	if rank != nil {
		r = strconv.Itoa(*rank)
	}
	return fmt.Sprintf("%d.%d.%s", window, tab, r)
}

// SortRecords orders records by window, tab, rank (unranked last) and pane id.
func SortRecords(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := cmp.Compare(a.WindowIndex, b.WindowIndex); c != 0 {
			return c
		}
		if c := cmp.Compare(a.TabIndex, b.TabIndex); c != 0 {
			return c
		}
		switch {
		case a.SpatialRank != nil && b.SpatialRank == nil:
			return -1
		case a.SpatialRank == nil && b.SpatialRank != nil:
			return 1
		case a.SpatialRank != nil && b.SpatialRank != nil:
			if c := cmp.Compare(*a.SpatialRank, *b.SpatialRank); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.PaneID, b.PaneID)
	})
}

// Select returns the record whose title matches, or the first record when
// none does. It returns false only for an empty list.
func Select(panels []Record, title string) (Record, bool) {
	if len(panels) == 0 {
		return Record{}, false
	}
	for _, p := range panels {
		if p.Title == title {
			return p, true
		}
	}
	return panels[0], true
}
