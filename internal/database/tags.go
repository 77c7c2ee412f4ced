package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetTags returns all tags ordered by name.
func (db *DB) GetTags() ([]Tag, error) {
	rows, err := db.conn.Query("SELECT id, name, COALESCE(createdAt, 0) FROM tags ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

// CreateTag creates a tag, returning the existing one when the name is taken.
func (db *DB) CreateTag(name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name is empty")
	}

	var t Tag
	err := db.conn.QueryRow("SELECT id, name, COALESCE(createdAt, 0) FROM tags WHERE name = ?", name).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	t = Tag{ID: newID(), Name: name, CreatedAt: db.now().Unix()}
	if _, err := db.conn.Exec("INSERT INTO tags (id, name, createdAt) VALUES (?, ?, ?)", t.ID, t.Name, t.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting tag: %w", err)
	}
	return &t, nil
}

// GetArticleTags returns the tags attached to an article.
func (db *DB) GetArticleTags(articleID string) ([]Tag, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.name, COALESCE(t.createdAt, 0) FROM tags t
		JOIN article_tags at ON t.id = at.tag_id
		WHERE at.article_id = ?
		ORDER BY t.name ASC`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

// AddTagToArticle attaches a tag by name, creating it if needed.
// Adding a tag twice is a no-op.
func (db *DB) AddTagToArticle(articleID, tagName string) (*Tag, error) {
	tag, err := db.CreateTag(tagName)
	if err != nil {
		return nil, err
	}
	_, err = db.conn.Exec(
		"INSERT OR IGNORE INTO article_tags (article_id, tag_id) VALUES (?, ?)",
		articleID, tag.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("tagging article %s: %w", articleID, err)
	}
	return tag, nil
}

// RemoveTagFromArticle detaches a tag; the tag itself is kept.
func (db *DB) RemoveTagFromArticle(articleID, tagID string) error {
	_, err := db.conn.Exec("DELETE FROM article_tags WHERE article_id = ? AND tag_id = ?", articleID, tagID)
	return err
}

func (db *DB) tagsByArticle() (map[string][]Tag, error) {
	rows, err := db.conn.Query(`
		SELECT at.article_id, t.id, t.name, COALESCE(t.createdAt, 0) FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		ORDER BY t.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Tag)
	for rows.Next() {
		var articleID string
		var t Tag
		if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out[articleID] = append(out[articleID], t)
	}
	return out, rows.Err()
}

func scanTags(rows *sql.Rows) ([]Tag, error) {
	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
