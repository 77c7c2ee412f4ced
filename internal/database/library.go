package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jaytaylor/html2text"
)

// ExportLibrary returns every list, article, tag and tag link.
func (db *DB) ExportLibrary() (*Library, error) {
	lists, err := db.GetLists()
	if err != nil {
		return nil, fmt.Errorf("exporting lists: %w", err)
	}
	articles, err := db.GetArticles(ArticleFilter{})
	if err != nil {
		return nil, fmt.Errorf("exporting articles: %w", err)
	}
	tags, err := db.GetTags()
	if err != nil {
		return nil, fmt.Errorf("exporting tags: %w", err)
	}

	rows, err := db.conn.Query("SELECT article_id, tag_id FROM article_tags ORDER BY article_id, tag_id")
	if err != nil {
		return nil, fmt.Errorf("exporting tag links: %w", err)
	}
	defer rows.Close()

	lib := &Library{
		Lists:       nonNil(lists),
		Articles:    nonNil(articles),
		Tags:        nonNil(tags),
		ArticleTags: []ArticleTag{},
	}
	for rows.Next() {
		var at ArticleTag
		if err := rows.Scan(&at.ArticleID, &at.TagID); err != nil {
			return nil, err
		}
		lib.ArticleTags = append(lib.ArticleTags, at)
	}
	return lib, rows.Err()
}

// ImportLibrary merges a backup into the store in one transaction. Rows are
// upserted by ID; tags whose name already exists under another ID are mapped
// onto the existing tag. Every article body is passed through sanitize
// before it is written.
func (db *DB) ImportLibrary(lib *Library, sanitize func(string) string) (*ImportResult, error) {
	if lib == nil {
		return nil, errors.New("library is empty")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res := &ImportResult{}
	var importedDefault string

	for _, l := range lib.Lists {
		if l.ID == "" {
			continue
		}
		createdAt := l.CreatedAt
		if createdAt == 0 {
			createdAt = db.now().Unix()
		}
		_, err := tx.Exec(`INSERT INTO lists (id, name, position, createdAt) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, position = excluded.position`,
			l.ID, l.Name, l.Position, createdAt)
		if err != nil {
			return nil, fmt.Errorf("importing list %s: %w", l.ID, err)
		}
		if l.IsDefault {
			importedDefault = l.ID
		}
		res.Lists++
	}

	tagIDs := make(map[string]string, len(lib.Tags))
	for _, t := range lib.Tags {
		name := strings.TrimSpace(t.Name)
		if t.ID == "" || name == "" {
			continue
		}
		var existing string
		err := tx.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&existing)
		switch {
		case err == nil:
			tagIDs[t.ID] = existing
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}

		createdAt := t.CreatedAt
		if createdAt == 0 {
			createdAt = db.now().Unix()
		}
		_, err = tx.Exec(`INSERT INTO tags (id, name, createdAt) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name`, t.ID, name, createdAt)
		if err != nil {
			return nil, fmt.Errorf("importing tag %s: %w", t.ID, err)
		}
		tagIDs[t.ID] = t.ID
		res.Tags++
	}

	if importedDefault != "" {
		if err := setDefaultTx(tx, importedDefault); err != nil {
			return nil, err
		}
	} else if err := ensureDefaultTx(tx); err != nil {
		return nil, err
	}

	var fallbackList sql.NullString
	err = tx.QueryRow("SELECT id FROM lists ORDER BY is_default DESC, position ASC LIMIT 1").Scan(&fallbackList)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	links := append([]ArticleTag(nil), lib.ArticleTags...)
	articleIDs := make(map[string]bool, len(lib.Articles))
	for _, a := range lib.Articles {
		if a.ID == "" || a.URL == "" {
			continue
		}
		content := sanitize(a.Content)
		text := a.TextContent
		if strings.TrimSpace(text) == "" && content != "" {
			if derived, err := html2text.FromString(content, html2text.Options{OmitLinks: true}); err == nil {
				text = derived
			}
		}
		listID := fallbackList
		if a.ListID != nil && *a.ListID != "" {
			var ok int
			if err := tx.QueryRow("SELECT COUNT(*) FROM lists WHERE id = ?", *a.ListID).Scan(&ok); err != nil {
				return nil, err
			}
			if ok > 0 {
				listID = sql.NullString{String: *a.ListID, Valid: true}
			}
		}
		createdAt := a.CreatedAt
		if createdAt == 0 {
			createdAt = db.now().Unix()
		}

		_, err := tx.Exec(`INSERT INTO articles (id, url, title, content, textContent, excerpt, byline, siteName, publishedTime, list_id, createdAt)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET url = excluded.url, title = excluded.title, content = excluded.content,
				textContent = excluded.textContent, excerpt = excluded.excerpt, byline = excluded.byline,
				siteName = excluded.siteName, publishedTime = excluded.publishedTime,
				list_id = excluded.list_id, createdAt = excluded.createdAt`,
			a.ID, a.URL, a.Title, content, text, a.Excerpt, a.Byline, a.SiteName, a.PublishedTime, listID, createdAt)
		if err != nil {
			return nil, fmt.Errorf("importing article %s: %w", a.ID, err)
		}
		articleIDs[a.ID] = true
		res.Articles++

		// Tags embedded in the article record count as links too.
		for _, t := range a.Tags {
			links = append(links, ArticleTag{ArticleID: a.ID, TagID: t.ID})
		}
	}

	for _, at := range links {
		tagID, ok := tagIDs[at.TagID]
		if !ok || !articleIDs[at.ArticleID] {
			continue
		}
		r, err := tx.Exec("INSERT OR IGNORE INTO article_tags (article_id, tag_id) VALUES (?, ?)", at.ArticleID, tagID)
		if err != nil {
			return nil, fmt.Errorf("importing tag link %s/%s: %w", at.ArticleID, at.TagID, err)
		}
		if n, _ := r.RowsAffected(); n > 0 {
			res.ArticleTags++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return res, nil
}

// ensureDefaultTx stamps the lowest-position list as default when none is.
func ensureDefaultTx(tx *sql.Tx) error {
	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM lists WHERE is_default = 1").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := tx.Exec(`UPDATE lists SET is_default = 1
		WHERE id = (SELECT id FROM lists ORDER BY position ASC, createdAt ASC LIMIT 1)`)
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
