package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultListName is the list seeded into an empty library.
const DefaultListName = "Reading List"

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens a SQLite database at the given path, migrates the
// schema and makes sure a default list exists.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// foreign_keys is per connection, so it goes in the DSN where every
	// pooled connection picks it up.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	db := &DB{conn: conn, path: dbPath, now: time.Now}
	if err := db.bootstrap(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bootstrapping library: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// bootstrap seeds the default list into an empty library.
func (db *DB) bootstrap() error {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM lists").Scan(&count); err != nil {
		return fmt.Errorf("counting lists: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := db.conn.Exec(
		"INSERT INTO lists (id, name, position, is_default, createdAt) VALUES (?, ?, 0, 1, ?)",
		newID(), DefaultListName, db.now().Unix(),
	)
	return err
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM articles", &s.Articles},
		{"SELECT COUNT(*) FROM lists", &s.Lists},
		{"SELECT COUNT(*) FROM tags", &s.Tags},
		{"SELECT COUNT(DISTINCT article_id) FROM article_tags", &s.TaggedArticles},
		{"SELECT COUNT(*) FROM articles WHERE list_id IS NULL", &s.UnlistedArticles},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newID() string {
	return uuid.NewString()
}
