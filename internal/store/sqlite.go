package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a local SQLite file, for deployments that want
// download links to survive restarts.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store DB: %w", err)
	}
	// modernc's driver is not safe for concurrent writers on one connection
	// pool without this; the workload is tiny so a single connection is fine.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS fixed_playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		fixes BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create store schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(rec Record) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err = s.db.Exec(
		"INSERT INTO fixed_playlists (id, name, content, fixes, created_at) VALUES (?, ?, ?, ?, ?)",
		id, rec.Name, rec.Content, rec.Fixes, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

func (s *SQLite) Get(id string) (Record, error) {
	var rec Record
	var created int64
	err := s.db.QueryRow(
		"SELECT name, content, fixes, created_at FROM fixed_playlists WHERE id = ?", id,
	).Scan(&rec.Name, &rec.Content, &rec.Fixes, &created)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query record: %w", err)
	}
	rec.CreatedAt = time.Unix(created, 0)
	return rec, nil
}

// Sweep deletes records older than ttl and returns how many were removed.
func (s *SQLite) Sweep(ttl time.Duration) (int, error) {
	res, err := s.db.Exec(
		"DELETE FROM fixed_playlists WHERE created_at < ?",
		time.Now().Add(-ttl).Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
