// Package pkg provides the core libraries for panelmap pane layout mapping.
//
// # Overview
//
// panelmap turns a captured split-pane terminal layout into a flat list of
// panes, each with an absolute frame, a reading-order rank, the OS window id
// of its window and a "window.tab.rank" title. The pkg directory is organized
// into three areas:
//
//  1. Domain logic ([tree], [layout], [spatial], [match], [pipeline])
//  2. Infrastructure ([cache], [history], [config], [observability])
//  3. Integrations and output ([control], [render], [snapshot])
//
// # Architecture
//
// The typical data flow through panelmap:
//
//	Captured snapshot (JSON)
//	         ↓
//	    [snapshot] package (decode windows, tabs and split trees)
//	         ↓
//	    [layout] package (absolute pane frames per tab)
//	         ↓
//	    [spatial] package (reading-order ranks)
//	         ↓
//	    [match] package (window frame → OS window id)
//	         ↓
//	    [pipeline] package (flat per-pane records)
//	         ↓
//	    JSON / table / SVG / DOT output
//
// # Quick Start
//
// Dump the panel list of a snapshot file:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/panelmap/pkg/pipeline"
//	    "github.com/matzehuels/panelmap/pkg/snapshot"
//	)
//
//	// 1. Read the snapshot
//	snap, _ := snapshot.ReadFile("snapshot.json")
//
//	// 2. Compute the panel list
//	res, _ := pipeline.Dump(context.Background(), snap, pipeline.Options{
//	    Owners: pipeline.DefaultOwners,
//	})
//
//	// 3. Use the records
//	for _, p := range res.Panels {
//	    fmt.Println(p.Title, p.PaneID, *p.MatchedWindowID)
//	}
//
// # Main Packages
//
// ## Domain Logic
//
// [tree] - The split tree of one tab: panes with reported frames and
// horizontal or vertical splits. Tagged JSON encoding and structural
// validation.
//
// [layout] - Reconstructs absolute pane frames. Subtree sizes come from
// reported frames; a split whose children share a leading coordinate lays
// them out along its axis, otherwise every child starts at the split's
// origin.
//
// [spatial] - Ranks panes by the center of their layout frame, top to bottom
// and then left to right, with the pane id as the final tie-break.
//
// [match] - Pairs an application window frame with the nearest OS window,
// weighting size differences over position and rejecting matches outside the
// configured tolerances.
//
// [pipeline] - The complete dump: validate, lay out, rank and match every
// tab, concurrently per window, with malformed tabs reported rather than
// fatal.
//
// ## Infrastructure
//
// [cache] - Dump and render caching with file, Redis and null backends
// behind one interface, keyed by snapshot content hash.
//
// [history] - A local SQLite record of past dumps with goose migrations.
//
// [config] - TOML configuration with environment overrides.
//
// [observability] - Process-wide hooks for pipeline, cache and controller
// events, used by the HTTP server's Prometheus metrics.
//
// ## Integrations and Output
//
// [control] - WebSocket client for the capture controller that lists panels
// by title and selects the capture target.
//
// [render] - SVG drawings of a tab's layout, Graphviz diagrams of split trees
// and SVG to PDF/PNG conversion.
//
// [snapshot] - The captured input document and its content hash.
//
// # Common Workflows
//
// Lay out a single tree:
//
//	frames, _ := layout.Assign(root, layout.Options{Precision: 3})
//	ranks := spatial.Rank(frames)
//
// Match a window by hand:
//
//	m := match.NewMatcher(match.DefaultTolerances())
//	res, ok := m.Match(&frame, match.FilterOwners(osWindows, "iTerm2"))
//
// Cache dumps in Redis:
//
//	rc, _ := cache.DialRedis(ctx, cache.RedisOptions{Addr: "127.0.0.1:6379"})
//	runner := pipeline.NewRunner(rc, nil, logger)
//	res, _ := runner.DumpWithCache(ctx, snap, opts)
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/layout/...     # Specific package
//	go test -run Example ./...   # Examples only
//
// [tree]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/tree
// [layout]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/layout
// [spatial]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/spatial
// [match]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/match
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/cache
// [history]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/history
// [config]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/observability
// [control]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/control
// [render]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/render
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/panelmap/pkg/snapshot
package pkg
