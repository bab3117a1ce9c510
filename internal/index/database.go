// Package index handles SQLite storage for documents and their attributes.
//
// The database plays the part of the host's content store: a documents
// table, per-document key/value attributes and process-wide options. The
// link index keeps its adjacency sets and pending queue in attributes and
// options, so any store offering the same operations can replace it.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// DirName is the per-site directory holding the database and its lock.
const DirName = ".wlh"

const dbFile = "index.db"

// CurrentDBVersion is stored in the meta table. A database with any other
// version is rebuilt by OpenWithRebuild.
//
//	1: documents, attributes, options
//	2: source_path and modified_at on documents
const CurrentDBVersion = 2

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA temp_store = MEMORY;

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT 'html',
	revision INTEGER NOT NULL DEFAULT 0,
	source_path TEXT NOT NULL DEFAULT '',
	modified_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attributes (
	doc_id INTEGER NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value TEXT NOT NULL,
	PRIMARY KEY (doc_id, meta_key)
);

CREATE TABLE IF NOT EXISTS options (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_slug ON documents(slug);
CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_path);
CREATE INDEX IF NOT EXISTS idx_attributes_key ON attributes(meta_key);
`

// Database is the SQLite database handle.
type Database struct {
	db   *sql.DB
	base *url.URL
}

func dbPath(sitePath string) string {
	return filepath.Join(sitePath, DirName, dbFile)
}

func ensureDir(sitePath string) error {
	if err := os.MkdirAll(filepath.Join(sitePath, DirName), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}
	return nil
}

// Open opens or creates the database for the site at sitePath.
func Open(sitePath string) (*Database, error) {
	if err := ensureDir(sitePath); err != nil {
		return nil, err
	}
	return open(dbPath(sitePath), 0)
}

// OpenInMemory opens an empty in-memory database, for tests.
func OpenInMemory() (*Database, error) {
	// Every pooled connection would get its own empty in-memory database.
	return open(":memory:", 1)
}

func open(dsn string, maxConns int) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	if _, err := d.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		strconv.Itoa(CurrentDBVersion)); err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}
	return nil
}

// OpenWithRebuild opens the database, recreating it when it was written by
// another schema version. It takes the site lock for the duration.
func OpenWithRebuild(sitePath string) (*Database, bool, error) {
	lock, err := AcquireLock(sitePath)
	if err != nil {
		return nil, false, err
	}
	defer lock.Release()
	return OpenWithRebuildLocked(sitePath)
}

// OpenWithRebuildLocked is OpenWithRebuild for a caller that already holds
// the site lock.
func OpenWithRebuildLocked(sitePath string) (*Database, bool, error) {
	path := dbPath(sitePath)
	rebuilt := false
	if _, err := os.Stat(path); err == nil {
		version, err := storedVersion(path)
		if err != nil || version != CurrentDBVersion {
			if err := removeDatabaseFiles(path); err != nil {
				return nil, false, err
			}
			rebuilt = true
		}
	}
	db, err := Open(sitePath)
	return db, rebuilt, err
}

// storedVersion reads the schema version from an existing database file.
func storedVersion(path string) (int, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var v string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&v); err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func removeDatabaseFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// IndexStats contains row counts for the site database.
type IndexStats struct {
	DocumentCount  int `json:"documents"`
	PublishedCount int `json:"published"`
	AttributeCount int `json:"attributes"`
	OptionCount    int `json:"options"`
}

func (d *Database) Stats() (*IndexStats, error) {
	var s IndexStats
	err := d.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM documents WHERE status = 'publish' AND revision = 0),
			(SELECT COUNT(*) FROM attributes),
			(SELECT COUNT(*) FROM options)
	`).Scan(&s.DocumentCount, &s.PublishedCount, &s.AttributeCount, &s.OptionCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	return &s, nil
}
