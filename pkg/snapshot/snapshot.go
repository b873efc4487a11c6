// Package snapshot defines the captured state a dump is computed from.
//
// A [Snapshot] holds every application window with its tabs' split trees,
// plus the OS window list used for id matching. Snapshots are produced by the
// capture controller (or written by hand for tests) and stored as JSON:
//
//	{
//	  "windows": [
//	    {"frame": {"x": 10, "y": 10, "w": 800, "h": 600},
//	     "tabs": [{"root": {"type": "pane", "id": "s1", "frame": {...}}}]}
//	  ],
//	  "os_windows": [{"id": 4711, "owner": "iTerm2", "x": 10, "y": 10, "w": 800, "h": 600}],
//	  "captured_at": "2026-01-02T15:04:05Z"
//	}
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/match"
	"github.com/matzehuels/panelmap/pkg/tree"
)

// Snapshot is the captured state of all application windows.
type Snapshot struct {
	Windows    []Window           `json:"windows"`
	OSWindows  []match.Descriptor `json:"os_windows,omitempty"`
	CapturedAt time.Time          `json:"captured_at,omitzero"`
}

// Window is one application window. Frame is nil when the host could not
// report it.
type Window struct {
	Frame *geom.Rect `json:"frame"`
	Tabs  []Tab      `json:"tabs"`
}

// Tab is one tab of a window with its split tree.
type Tab struct {
	ID   string
	Root tree.Node
}

type tabJSON struct {
	ID   string    `json:"id,omitempty"`
	Root tree.Tree `json:"root"`
}

// MarshalJSON implements json.Marshaler.
func (t Tab) MarshalJSON() ([]byte, error) {
	return json.Marshal(tabJSON{ID: t.ID, Root: tree.Tree{Root: t.Root}})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tab) UnmarshalJSON(data []byte) error {
	var v tabJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	t.ID, t.Root = v.ID, v.Root.Root
	return nil
}

// PaneCount returns the number of panes across all windows and tabs.
func (s *Snapshot) PaneCount() int {
	var n int
	for _, w := range s.Windows {
		for _, t := range w.Tabs {
			n += tree.Count(t.Root)
		}
	}
	return n
}

// TabCount returns the number of tabs across all windows.
func (s *Snapshot) TabCount() int {
	var n int
	for _, w := range s.Windows {
		n += len(w.Tabs)
	}
	return n
}

// Validate checks every tab's tree and every window frame. All defects are
// returned joined; a defect in one tab does not hide defects in others.
func (s *Snapshot) Validate() error {
	var errs []error
	for wi, w := range s.Windows {
		if f := w.Frame; f != nil && (f.W < 0 || f.H < 0) {
			errs = append(errs, errors.New(errors.ErrCodeInvalidSnapshot,
				"window %d: negative frame size %gx%g", wi+1, f.W, f.H))
		}
		for ti, t := range w.Tabs {
			if err := tree.Validate(t.Root); err != nil {
				errs = append(errs, errors.Wrap(errors.ErrCodeInvalidTree, err, "window %d tab %d", wi+1, ti+1))
			}
		}
	}
	return errors.Join(errs...)
}

// Hash returns a content hash of the windows and OS window list. The capture
// time is excluded so identical layouts captured at different times share a
// hash.
func (s *Snapshot) Hash() (string, error) {
	data, err := json.Marshal(struct {
		Windows   []Window           `json:"windows"`
		OSWindows []match.Descriptor `json:"os_windows"`
	}{s.Windows, s.OSWindows})
	if err != nil {
		return "", fmt.Errorf("hash snapshot: %w", err)
	}
	return cache.Hash(data), nil
}

// Marshal encodes a snapshot as indented JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a snapshot as indented JSON to w.
func Write(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes a snapshot to path with 0644 permissions.
func WriteFile(s *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(s, f)
}

// Read decodes a snapshot from r. Structural tree defects are not checked
// here; see [Snapshot.Validate].
func Read(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		if errors.GetCode(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode snapshot")
	}
	return &s, nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
