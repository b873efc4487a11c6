// Package cache stores computed dump results keyed by snapshot content.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry under the XDG cache directory (CLI)
//   - [RedisCache]: a shared Redis instance (the HTTP service)
//   - [NullCache]: stores nothing (--no-cache, tests)
//
// Keys are produced by a [Keyer] so every caller derives the same key from
// the same inputs. Options that change the output are part of the key.
package cache

import (
	"context"
	"time"
)

// Default TTLs for cached artifacts.
const (
	// TTLDump bounds how long a computed dump stays valid. Dumps are a pure
	// function of the snapshot, so this only limits disk growth.
	TTLDump = 24 * time.Hour

	// TTLRender applies to rendered SVG and DOT artifacts.
	TTLRender = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// DumpKey identifies a dump of the snapshot with the given hash.
	DumpKey(snapshotHash string, opts DumpKeyOpts) string

	// RenderKey identifies a rendered artifact of one tab.
	RenderKey(snapshotHash string, opts RenderKeyOpts) string
}

// DumpKeyOpts lists the options that change a dump's output.
type DumpKeyOpts struct {
	Precision  int       `json:"precision"`
	Tolerances []float64 `json:"tolerances,omitempty"`
	Owners     []string  `json:"owners,omitempty"`
}

// RenderKeyOpts lists the options that change a rendered artifact.
type RenderKeyOpts struct {
	Kind      string `json:"kind"` // "layout" or "tree"
	Format    string `json:"format"`
	Window    int    `json:"window"`
	Tab       int    `json:"tab"`
	Width     int    `json:"width,omitempty"`
	Highlight string `json:"highlight,omitempty"`
	PaneIDs   bool   `json:"pane_ids,omitempty"`
}

// DefaultKeyer hashes the key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DumpKey implements Keyer.
func (DefaultKeyer) DumpKey(snapshotHash string, opts DumpKeyOpts) string {
	return hashKey("dump", snapshotHash, opts)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(snapshotHash string, opts RenderKeyOpts) string {
	return hashKey("render", snapshotHash, opts)
}
