// Package history records clustering runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	dataset    TEXT NOT NULL,
	algorithm  TEXT NOT NULL,
	params     TEXT NOT NULL,
	features   TEXT NOT NULL,
	rows       INTEGER NOT NULL,
	clusters   INTEGER NOT NULL,
	noise      INTEGER NOT NULL,
	silhouette REAL,
	sizes      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at DESC);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Run is one recorded pipeline execution.
type Run struct {
	ID         string                `json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	Dataset    string                `json:"dataset"`
	Algorithm  string                `json:"algorithm"`
	Params     map[string]any        `json:"params"`
	Features   []string              `json:"features"`
	Rows       int                   `json:"rows"`
	Clusters   int                   `json:"clusters"`
	Noise      int                   `json:"noise"`
	Silhouette *float64              `json:"silhouette"`
	Sizes      []cluster.ClusterSize `json:"sizes"`
}

// FromResult copies the recordable fields of res.
func FromResult(res *cluster.Result) Run {
	r := Run{
		Dataset:   res.Dataset,
		Algorithm: res.Algorithm.Name(),
		Params:    res.Algorithm.Params(),
		Features:  res.Features.Columns,
		Rows:      len(res.Assignment.Labels),
		Clusters:  res.Clusters,
		Noise:     res.Noise,
		Sizes:     res.Sizes,
	}
	if res.SilhouetteOK {
		s := res.Silhouette
		r.Silhouette = &s
	}
	return r
}

// Store wraps the history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Record stores r, filling ID and CreatedAt when empty, and returns the
// stored run.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	params, err := json.Marshal(r.Params)
	if err != nil {
		return r, fmt.Errorf("encode params: %w", err)
	}
	features, err := json.Marshal(r.Features)
	if err != nil {
		return r, fmt.Errorf("encode features: %w", err)
	}
	sizes, err := json.Marshal(r.Sizes)
	if err != nil {
		return r, fmt.Errorf("encode sizes: %w", err)
	}
	var sil sql.NullFloat64
	if r.Silhouette != nil {
		sil = sql.NullFloat64{Float64: *r.Silhouette, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, dataset, algorithm, params, features, rows, clusters, noise, silhouette, sizes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UnixNano(), r.Dataset, r.Algorithm, string(params), string(features),
		r.Rows, r.Clusters, r.Noise, sil, string(sizes))
	if err != nil {
		return r, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

const selectRun = `SELECT id, created_at, dataset, algorithm, params, features, rows, clusters, noise, silhouette, sizes FROM runs`

// List returns up to limit runs, newest first. limit <= 0 means 20.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                       Run
		created                 int64
		params, features, sizes string
		sil                     sql.NullFloat64
	)
	if err := sc.Scan(&r.ID, &created, &r.Dataset, &r.Algorithm, &params, &features, &r.Rows, &r.Clusters, &r.Noise, &sil, &sizes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan run: %w", err)
	}
	r.CreatedAt = time.Unix(0, created)
	if sil.Valid {
		v := sil.Float64
		r.Silhouette = &v
	}
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return r, fmt.Errorf("decode params of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
		return r, fmt.Errorf("decode features of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(sizes), &r.Sizes); err != nil {
		return r, fmt.Errorf("decode sizes of %s: %w", r.ID, err)
	}
	return r, nil
}
