// Package history keeps a local log of computed dumps in SQLite.
//
// Every recorded dump gets a random id and stores the full [pipeline.Result]
// as JSON next to a few summary columns, so listing stays cheap and any past
// dump can be replayed exactly. The schema is managed with embedded goose
// migrations and applied on [Open].
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

// DefaultListLimit is used by List when limit is not positive.
const DefaultListLimit = 20

// Entry is one recorded dump. Result is only populated by Get.
type Entry struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Source       string           `json:"source"`
	SnapshotHash string           `json:"snapshot_hash"`
	Windows      int              `json:"windows"`
	Tabs         int              `json:"tabs"`
	Panes        int              `json:"panes"`
	Matched      int              `json:"matched_windows"`
	TabErrors    int              `json:"tab_errors"`
	Result       *pipeline.Result `json:"result,omitempty"`
}

// Store is a SQLite-backed dump history. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	logger *log.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the history database at path and applies
// migrations. A nil logger means log.Default().
func Open(ctx context.Context, path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "history path is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect history: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	if _, err := migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("history opened", "path", path)
	return &Store{db: db, path: path, logger: logger, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores res under a new id. Source describes where the snapshot
// came from (a file path, "stdin", "serve").
func (s *Store) Record(ctx context.Context, res *pipeline.Result, source string) (Entry, error) {
	if res == nil {
		return Entry{}, errors.New(errors.ErrCodeInvalidInput, "nil result")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return Entry{}, fmt.Errorf("encode result: %w", err)
	}

	e := Entry{
		ID:           uuid.NewString(),
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
		Source:       source,
		SnapshotHash: res.SnapshotHash,
		Windows:      res.Stats.Windows,
		Tabs:         res.Stats.Tabs,
		Panes:        res.Stats.Panes,
		Matched:      res.Stats.Matched,
		TabErrors:    len(res.Errors),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dumps (id, created_at, source, snapshot_hash, windows, tabs, panes, matched, tab_errors, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UnixMilli(), e.Source, e.SnapshotHash,
		e.Windows, e.Tabs, e.Panes, e.Matched, e.TabErrors, string(data))
	if err != nil {
		return Entry{}, fmt.Errorf("insert dump: %w", err)
	}

	s.logger.Debug("recorded dump", "id", e.ID, "panes", e.Panes)
	return e, nil
}

const summaryColumns = `id, created_at, source, snapshot_hash, windows, tabs, panes, matched, tab_errors`

// List returns the most recent entries, newest first, without results.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM dumps ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dumps: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := scanSummary(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry with the given id, including its result. A unique
// id prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, errors.New(errors.ErrCodeInvalidInput, "history id is empty")
	}
	pattern := strings.NewReplacer(`%`, `\%`, `_`, `\_`, `\`, `\\`).Replace(id) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+`, result FROM dumps WHERE id LIKE ? ESCAPE '\' LIMIT 2`, pattern)
	if err != nil {
		return Entry{}, fmt.Errorf("get dump: %w", err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		var (
			e    Entry
			data string
		)
		if err := scanSummary(rows, &e, &data); err != nil {
			return Entry{}, err
		}
		var res pipeline.Result
		if err := json.Unmarshal([]byte(data), &res); err != nil {
			return Entry{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode dump %s", e.ID)
		}
		e.Result = &res
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, err
	}

	switch len(found) {
	case 0:
		return Entry{}, errors.New(errors.ErrCodeNotFound, "no dump with id %q", id)
	case 1:
		return found[0], nil
	default:
		return Entry{}, errors.New(errors.ErrCodeInvalidInput, "id prefix %q is ambiguous", id)
	}
}

// Prune deletes all but the keep most recent entries and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "keep must be non-negative, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM dumps WHERE id NOT IN (
			SELECT id FROM dumps ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune dumps: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("pruned history", "removed", n, "kept", keep)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, e *Entry, extra ...any) error {
	var ms int64
	dest := append([]any{&e.ID, &ms, &e.Source, &e.SnapshotHash,
		&e.Windows, &e.Tabs, &e.Panes, &e.Matched, &e.TabErrors}, extra...)
	if err := row.Scan(dest...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(errors.ErrCodeNotFound, err, "dump")
		}
		return fmt.Errorf("scan dump: %w", err)
	}
	e.CreatedAt = time.UnixMilli(ms).UTC()
	return nil
}
