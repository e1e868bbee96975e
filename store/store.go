// Package store persists query history, editor settings and the last schema
// snapshot per connection in a local SQLite file.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anilkmeesala/db-sense-editor/catalog"
)

type HistoryEntry struct {
	ID         int64
	SQL        string
	Connection string
	Timestamp  time.Time
	Duration   time.Duration
	RowCount   int64
	Error      string
}

// Snapshot is a cached catalog for one connection.
type Snapshot struct {
	Connection string
	Tables     []catalog.TableMeta
	SavedAt    time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s, err := newWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newWithDB(db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sql_text TEXT NOT NULL,
			connection TEXT NOT NULL,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			row_count INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS schema_snapshots (
			connection TEXT PRIMARY KEY,
			tables_json TEXT NOT NULL,
			saved_at DATETIME NOT NULL
		);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// History

func (s *Store) AddHistory(sqlText, connection string, dur time.Duration, rowCount int64, queryErr string) error {
	_, err := s.db.Exec(
		`INSERT INTO history (sql_text, connection, timestamp, duration_ms, row_count, error) VALUES (?, ?, ?, ?, ?, ?)`,
		sqlText, connection, time.Now(), dur.Milliseconds(), rowCount, queryErr,
	)
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// ListHistory returns the newest entries first. A non-empty connection limits
// the list to that connection.
func (s *Store) ListHistory(connection string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(
		`SELECT id, sql_text, connection, timestamp, duration_ms, row_count, error FROM history
		 WHERE ? = '' OR connection = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		connection, connection, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ms int64
		if err := rows.Scan(&e.ID, &e.SQL, &e.Connection, &e.Timestamp, &ms, &e.RowCount, &e.Error); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ClearHistory() error {
	_, err := s.db.Exec(`DELETE FROM history`)
	return err
}

// ListRecentConnections returns connection keys from history, most recently
// used first.
func (s *Store) ListRecentConnections(limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT connection FROM history WHERE connection != '' GROUP BY connection ORDER BY MAX(id) DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conns []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// Settings

func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Schema snapshots

// SaveSnapshot replaces the cached catalog for connection.
func (s *Store) SaveSnapshot(connection string, tables []catalog.TableMeta) error {
	if tables == nil {
		tables = []catalog.TableMeta{}
	}
	data, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO schema_snapshots (connection, tables_json, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(connection) DO UPDATE SET tables_json = excluded.tables_json, saved_at = excluded.saved_at`,
		connection, string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached catalog for connection, or nil when none
// has been saved.
func (s *Store) LoadSnapshot(connection string) (*Snapshot, error) {
	var data string
	snap := &Snapshot{Connection: connection}
	err := s.db.QueryRow(
		`SELECT tables_json, saved_at FROM schema_snapshots WHERE connection = ?`, connection,
	).Scan(&data, &snap.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &snap.Tables); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) DeleteSnapshot(connection string) error {
	_, err := s.db.Exec(`DELETE FROM schema_snapshots WHERE connection = ?`, connection)
	return err
}
