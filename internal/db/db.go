// Package db persists root directories, favorites and recents in DuckDB.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	_ "github.com/marcboeker/go-duckdb"
)

// DefaultRecentLimit is how many roots Recents returns in a snapshot
const DefaultRecentLimit = 10

// epoch marks a root that was recorded but never used
var epoch = time.Unix(0, 0).UTC()

// DB wraps a DuckDB connection holding the roots table
type DB struct {
	conn *sql.DB
	path string
	dir  string
	mu   sync.Mutex // Protects all database operations from concurrent access
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and initializes the
// schema. An empty dbPath opens an in-memory database.
func New(dbPath string) (*DB, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	// DuckDB allows one writer; a single connection keeps writes ordered.
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn: conn,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}
	if dbPath != "" {
		db.dir = filepath.Dir(dbPath)
	}

	if err := db.InitializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// InitializeSchema creates the roots table if missing
func (db *DB) InitializeSchema() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(BuildRootsTableSQL()); err != nil {
		return fmt.Errorf("failed to create roots table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database still answers
func (db *DB) Ping(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Path returns the database file, or "" when in memory
func (db *DB) Path() string {
	return db.path
}

// Dir returns the directory holding the database file
func (db *DB) Dir() string {
	return db.dir
}

// ensureRoot inserts a never-used row for path if none exists. The
// caller holds db.mu.
func (db *DB) ensureRoot(path string) error {
	_, err := db.conn.Exec(`
INSERT INTO roots (path, name, favorite, active, added_at, last_used)
VALUES (?, ?, false, false, ?, ?)
ON CONFLICT (path) DO NOTHING`,
		path, utils.Base(path), db.now(), epoch)
	if err != nil {
		return fmt.Errorf("failed to ensure root %s: %w", path, err)
	}
	return nil
}

// RecordRootAdd marks path as an active root and touches it. An empty
// name keeps the stored one.
func (db *DB) RecordRootAdd(path, name string) error {
	path = utils.Canonical(path)
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.ensureRoot(path); err != nil {
		return err
	}
	query := "UPDATE roots SET active = true, last_used = ?"
	args := []any{db.now()}
	if name != "" {
		query += ", name = ?"
		args = append(args, name)
	}
	query += " WHERE path = ?"
	args = append(args, path)

	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to record root add %s: %w", path, err)
	}
	return nil
}

// RecordRootRemove marks path inactive. The row is kept for recents.
func (db *DB) RecordRootRemove(path string) error {
	return db.update(path, "UPDATE roots SET active = false WHERE path = ?")
}

// TouchRoot updates last_used
func (db *DB) TouchRoot(path string) error {
	path = utils.Canonical(path)
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.ensureRoot(path); err != nil {
		return err
	}
	if _, err := db.conn.Exec("UPDATE roots SET last_used = ? WHERE path = ?", db.now(), path); err != nil {
		return fmt.Errorf("failed to touch root %s: %w", path, err)
	}
	return nil
}

// SetFavorite sets the favorite flag
func (db *DB) SetFavorite(path string, favorite bool) error {
	path = utils.Canonical(path)
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.ensureRoot(path); err != nil {
		return err
	}
	if _, err := db.conn.Exec("UPDATE roots SET favorite = ? WHERE path = ?", favorite, path); err != nil {
		return fmt.Errorf("failed to set favorite %s: %w", path, err)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value
func (db *DB) ToggleFavorite(path string) (bool, error) {
	path = utils.Canonical(path)
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.ensureRoot(path); err != nil {
		return false, err
	}
	if _, err := db.conn.Exec("UPDATE roots SET favorite = NOT favorite WHERE path = ?", path); err != nil {
		return false, fmt.Errorf("failed to toggle favorite %s: %w", path, err)
	}
	var favorite bool
	if err := db.conn.QueryRow("SELECT favorite FROM roots WHERE path = ?", path).Scan(&favorite); err != nil {
		return false, fmt.Errorf("failed to read favorite %s: %w", path, err)
	}
	return favorite, nil
}

// GetRoot returns one stored root
func (db *DB) GetRoot(path string) (*types.RootRecord, error) {
	path = utils.Canonical(path)
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(selectRoots("path = ?", ""), path)
	if err != nil {
		return nil, fmt.Errorf("failed to get root %s: %w", path, err)
	}
	records, err := scanRoots(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("root not found: %s", path)
	}
	return &records[0], nil
}

// Roots returns every stored root ordered by path
func (db *DB) Roots() ([]types.RootRecord, error) {
	return db.query(selectRoots("", "path"))
}

// Favorites returns favorite roots, most recently used first, then by name
func (db *DB) Favorites() ([]types.RootRecord, error) {
	return db.query(selectRoots("favorite", "last_used DESC, lower(name), path"))
}

// Actives returns roots currently open in some session, by name
func (db *DB) Actives() ([]types.RootRecord, error) {
	return db.query(selectRoots("active", "lower(name), path"))
}

// Recents returns up to limit roots, most recently used first
func (db *DB) Recents(limit int) ([]types.RootRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return db.query(selectRoots("", "last_used DESC, path") + fmt.Sprintf(" LIMIT %d", limit))
}

// Snapshot returns all views at once for a new session
func (db *DB) Snapshot() (types.AppState, error) {
	state := types.AppState{AppDataDir: db.dir}
	var err error
	if state.Favorites, err = db.Favorites(); err != nil {
		return state, err
	}
	if state.Actives, err = db.Actives(); err != nil {
		return state, err
	}
	if state.Recents, err = db.Recents(DefaultRecentLimit); err != nil {
		return state, err
	}
	if state.Roots, err = db.Roots(); err != nil {
		return state, err
	}
	return state, nil
}

// DeactivateAll clears the active flag on every root. Called at startup
// since no session survives a restart.
func (db *DB) DeactivateAll() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err := db.conn.Exec("UPDATE roots SET active = false WHERE active"); err != nil {
		return fmt.Errorf("failed to deactivate roots: %w", err)
	}
	return nil
}

func (db *DB) update(path, query string) error {
	path = utils.Canonical(path)
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.ensureRoot(path); err != nil {
		return err
	}
	if _, err := db.conn.Exec(query, path); err != nil {
		return fmt.Errorf("failed to update root %s: %w", path, err)
	}
	return nil
}

func (db *DB) query(query string, args ...any) ([]types.RootRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roots: %w", err)
	}
	return scanRoots(rows)
}

func scanRoots(rows *sql.Rows) ([]types.RootRecord, error) {
	defer rows.Close()

	records := []types.RootRecord{}
	for rows.Next() {
		var r types.RootRecord
		if err := rows.Scan(&r.Path, &r.Name, &r.Favorite, &r.Active, &r.AddedAt, &r.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roots: %w", err)
	}
	return records, nil
}
