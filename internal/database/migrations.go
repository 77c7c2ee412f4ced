package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS lists (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    position INTEGER DEFAULT 0,
    createdAt INTEGER DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    createdAt INTEGER DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT,
    content TEXT,
    textContent TEXT,
    excerpt TEXT,
    byline TEXT,
    siteName TEXT,
    publishedTime TEXT,
    list_id TEXT,
    createdAt INTEGER DEFAULT (unixepoch()),
    FOREIGN KEY(list_id) REFERENCES lists(id)
);

CREATE TABLE IF NOT EXISTS article_tags (
    article_id TEXT,
    tag_id TEXT,
    PRIMARY KEY (article_id, tag_id),
    FOREIGN KEY(article_id) REFERENCES articles(id) ON DELETE CASCADE,
    FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "explicit default list",
		Up: func(tx *sql.Tx) error {
			// Earlier databases treated the lowest-position list as the
			// default; stamp that list so the choice survives reordering.
			_, err := tx.Exec(`
ALTER TABLE lists ADD COLUMN is_default INTEGER NOT NULL DEFAULT 0;

UPDATE lists SET is_default = 1
WHERE id = (SELECT id FROM lists ORDER BY position ASC, createdAt ASC LIMIT 1);

CREATE INDEX IF NOT EXISTS idx_articles_list ON articles(list_id);
CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(createdAt);
CREATE INDEX IF NOT EXISTS idx_lists_position ON lists(position);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
