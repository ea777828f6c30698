// Package store provides a SQLite-backed cache for ingested export tables.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/ledgercast/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed raw table caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// Matches reports whether info describes the same file version.
func (fi FileInfo) Matches(info os.FileInfo) bool {
	return fi.MtimeNs == info.ModTime().UnixNano() && fi.SizeBytes == info.Size()
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// CachedTable is a raw table as stored in the cache.
type CachedTable struct {
	Path     string
	Options  string
	Table    model.RawTable
	File     FileInfo
	ParsedAt time.Time
}

// SaveTable stores a raw table read from filePath with the given reader
// options, and updates the file tracker.
func (c *Cache) SaveTable(filePath, options string, table model.RawTable, mtimeNs, sizeBytes int64) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT OR REPLACE INTO raw_tables
		(file_path, read_options, row_count, rows_json, file_mtime_ns, file_size, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		filePath, options, len(table), string(payload), mtimeNs, sizeBytes, now,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes)
		VALUES (?, ?, ?)`, filePath, mtimeNs, sizeBytes)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadTable returns the cached table for filePath. ok is false when no
// entry exists.
func (c *Cache) LoadTable(filePath string) (ct CachedTable, ok bool, err error) {
	var payload, parsedAt string
	err = c.db.QueryRow(`SELECT read_options, rows_json, file_mtime_ns, file_size, parsed_at
		FROM raw_tables WHERE file_path = ?`, filePath).
		Scan(&ct.Options, &payload, &ct.File.MtimeNs, &ct.File.SizeBytes, &parsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedTable{}, false, nil
	}
	if err != nil {
		return CachedTable{}, false, err
	}

	if err := json.Unmarshal([]byte(payload), &ct.Table); err != nil {
		return CachedTable{}, false, fmt.Errorf("decoding cached table: %w", err)
	}
	ct.Path = filePath
	ct.ParsedAt, _ = time.Parse(time.RFC3339, parsedAt)
	return ct, true, nil
}

// DeleteTable removes a cached table and its file tracking entry.
func (c *Cache) DeleteTable(filePath string) error {
	if _, err := c.db.Exec("DELETE FROM raw_tables WHERE file_path = ?", filePath); err != nil {
		return err
	}
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", filePath)
	return err
}

// TableCount returns the number of cached tables.
func (c *Cache) TableCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM raw_tables").Scan(&count)
	return count, err
}
