package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/redoracle/webdoc/internal/model"
)

// DBFileName is the SQLite file name inside the state directory.
const DBFileName = "webdoc.db"

// Store failure sentinels.
var (
	// ErrNotFound is returned by Load when no crawl state has been
	// saved yet.
	ErrNotFound = errors.New("no saved crawl state")

	// ErrVersionMismatch is returned by Load when the saved snapshot
	// was written by an incompatible schema version.
	ErrVersionMismatch = errors.New("saved state schema version mismatch")
)

// Store provides SQLite-backed persistence for crawl state.
//
// Design decision: We store the whole snapshot in one database file and
// replace it wholesale on every Save rather than updating incrementally.
// A checkpoint is the atomic unit here; partial updates would let a
// crash leave frontier and results disagreeing about progress.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Open opens or creates the state database inside dir, creating the
// directory as needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// SQLite supports a single writer; more connections only add
	// lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the path of the backing database file.
func (s *Store) Path() string {
	return s.dbPath
}

// createTables creates the schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Meta holds the crawl parameters and the schema version.
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Frontier entries pending fetch, in queue order.
	CREATE TABLE IF NOT EXISTS frontier (
		position INTEGER PRIMARY KEY,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		origin TEXT NOT NULL,
		external INTEGER NOT NULL
	);

	-- URLs already enqueued or fetched.
	CREATE TABLE IF NOT EXISTS visited (
		url TEXT PRIMARY KEY
	);

	-- Completed page results, in processing order.
	CREATE TABLE IF NOT EXISTS results (
		position INTEGER PRIMARY KEY,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		external INTEGER NOT NULL,
		status_code INTEGER NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		image_url TEXT NOT NULL,
		image BLOB,
		links TEXT NOT NULL,
		fetch_err TEXT NOT NULL
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Save replaces the persisted snapshot with st. The write happens in a
// single transaction, so readers never observe a half-written snapshot.
func (s *Store) Save(ctx context.Context, st *model.CrawlState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"meta", "frontier", "visited", "results"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	meta := map[string]string{
		"schema_version":   strconv.Itoa(model.StateVersion),
		"seed_url":         st.SeedURL,
		"depth_limit":      strconv.Itoa(st.DepthLimit),
		"include_external": strconv.FormatBool(st.IncludeExternal),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to save meta %s: %w", key, err)
		}
	}

	for i, entry := range st.Frontier {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO frontier (position, url, depth, origin, external) VALUES (?, ?, ?, ?, ?)",
			i, entry.URL, entry.Depth, entry.Origin, boolToInt(entry.External)); err != nil {
			return fmt.Errorf("failed to save frontier entry: %w", err)
		}
	}

	for _, url := range st.Visited {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO visited (url) VALUES (?)", url); err != nil {
			return fmt.Errorf("failed to save visited URL: %w", err)
		}
	}

	for i, result := range st.Results {
		linksJSON, err := json.Marshal(result.Links)
		if err != nil {
			return fmt.Errorf("failed to serialize links: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results
			 (position, url, depth, external, status_code, title, text, image_url, image, links, fetch_err)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, result.URL, result.Depth, boolToInt(result.External), result.StatusCode,
			result.Title, result.Text, result.ImageURL, result.Image,
			string(linksJSON), result.FetchErr); err != nil {
			return fmt.Errorf("failed to save page result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. It returns ErrNotFound when
// nothing has been saved and ErrVersionMismatch when the snapshot was
// written by an incompatible schema.
func (s *Store) Load(ctx context.Context) (*model.CrawlState, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrNotFound
	}

	version, err := strconv.Atoi(meta["schema_version"])
	if err != nil || version != model.StateVersion {
		return nil, fmt.Errorf("%w: got %q, want %d",
			ErrVersionMismatch, meta["schema_version"], model.StateVersion)
	}

	depthLimit, err := strconv.Atoi(meta["depth_limit"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse depth limit: %w", err)
	}

	st := model.NewCrawlState(meta["seed_url"], depthLimit, meta["include_external"] == "true")

	if st.Frontier, err = s.loadFrontier(ctx); err != nil {
		return nil, err
	}
	if st.Visited, err = s.loadVisited(ctx); err != nil {
		return nil, err
	}
	if st.Results, err = s.loadResults(ctx); err != nil {
		return nil, err
	}

	return st, nil
}

// Clear removes the persisted snapshot. Called after a crawl finishes
// so a later run starts fresh.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"meta", "frontier", "visited", "results"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("failed to load meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan meta: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

func (s *Store) loadFrontier(ctx context.Context) ([]model.FrontierEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT url, depth, origin, external FROM frontier ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load frontier: %w", err)
	}
	defer rows.Close()

	frontier := make([]model.FrontierEntry, 0)
	for rows.Next() {
		var entry model.FrontierEntry
		var external int
		if err := rows.Scan(&entry.URL, &entry.Depth, &entry.Origin, &external); err != nil {
			return nil, fmt.Errorf("failed to scan frontier entry: %w", err)
		}
		entry.External = external != 0
		frontier = append(frontier, entry)
	}
	return frontier, rows.Err()
}

func (s *Store) loadVisited(ctx context.Context) ([]string, error) {
	// The visited set is order-independent; sorting keeps snapshots
	// comparable across save/load cycles.
	rows, err := s.db.QueryContext(ctx, "SELECT url FROM visited ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("failed to load visited set: %w", err)
	}
	defer rows.Close()

	visited := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan visited URL: %w", err)
		}
		visited = append(visited, url)
	}
	return visited, rows.Err()
}

func (s *Store) loadResults(ctx context.Context) ([]*model.PageResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, depth, external, status_code, title, text, image_url, image, links, fetch_err
		 FROM results ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	results := make([]*model.PageResult, 0)
	for rows.Next() {
		r := new(model.PageResult)
		var external int
		var linksJSON string
		if err := rows.Scan(&r.URL, &r.Depth, &external, &r.StatusCode,
			&r.Title, &r.Text, &r.ImageURL, &r.Image, &linksJSON, &r.FetchErr); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		r.External = external != 0
		if err := json.Unmarshal([]byte(linksJSON), &r.Links); err != nil {
			return nil, fmt.Errorf("failed to parse links: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
