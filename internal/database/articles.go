package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const articleColumns = `a.id, a.url, COALESCE(a.title, ''), COALESCE(a.content, ''),
	COALESCE(a.textContent, ''), COALESCE(a.excerpt, ''), COALESCE(a.byline, ''),
	COALESCE(a.siteName, ''), COALESCE(a.publishedTime, ''), a.list_id, COALESCE(a.createdAt, 0)`

// InsertArticle stores a new article and returns it with its fresh ID.
// Articles without a list land in the default list. Content must already
// be sanitized.
func (db *DB) InsertArticle(in NewArticle) (*Article, error) {
	listID := in.ListID
	if listID == nil || *listID == "" {
		def, err := db.DefaultList()
		if err != nil {
			return nil, fmt.Errorf("resolving default list: %w", err)
		}
		listID = nil
		if def != nil {
			listID = &def.ID
		}
	}

	a := &Article{
		ID:            newID(),
		URL:           in.URL,
		Title:         in.Title,
		Content:       in.Content,
		TextContent:   in.TextContent,
		Excerpt:       in.Excerpt,
		Byline:        in.Byline,
		SiteName:      in.SiteName,
		PublishedTime: in.PublishedTime,
		ListID:        listID,
		CreatedAt:     db.now().Unix(),
	}

	_, err := db.conn.Exec(
		`INSERT INTO articles (id, url, title, content, textContent, excerpt, byline, siteName, publishedTime, list_id, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.URL, a.Title, a.Content, a.TextContent, a.Excerpt, a.Byline,
		a.SiteName, a.PublishedTime, a.ListID, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting article: %w", err)
	}
	return a, nil
}

// GetArticle returns a single article with its tags, or nil if it does not exist.
func (db *DB) GetArticle(id string) (*Article, error) {
	row := db.conn.QueryRow(`SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags, err := db.GetArticleTags(id)
	if err != nil {
		return nil, err
	}
	a.Tags = tags
	return a, nil
}

// GetArticles returns articles matching the filter, newest first.
func (db *DB) GetArticles(f ArticleFilter) ([]Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a`
	var where []string
	var args []any
	if f.Tag != "" {
		query += ` JOIN article_tags at ON at.article_id = a.id JOIN tags t ON t.id = at.tag_id`
		where = append(where, "t.name = ?")
		args = append(args, f.Tag)
	}
	if f.ListID != "" {
		where = append(where, "a.list_id = ?")
		args = append(args, f.ListID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.createdAt DESC, a.rowid DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	articles, err := scanArticles(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	tagsByArticle, err := db.tagsByArticle()
	if err != nil {
		return nil, err
	}
	for i := range articles {
		articles[i].Tags = tagsByArticle[articles[i].ID]
	}
	return articles, nil
}

// DeleteArticle removes an article; its tag links cascade.
func (db *DB) DeleteArticle(id string) error {
	_, err := db.conn.Exec("DELETE FROM articles WHERE id = ?", id)
	return err
}

// DeleteAllArticles empties the library but keeps lists and tags.
func (db *DB) DeleteAllArticles() error {
	_, err := db.conn.Exec("DELETE FROM articles")
	return err
}

// UpdateArticleList moves an article into a list.
func (db *DB) UpdateArticleList(articleID, listID string) error {
	res, err := db.conn.Exec("UPDATE articles SET list_id = ? WHERE id = ?", listID, articleID)
	if err != nil {
		return fmt.Errorf("moving article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("article %s: %w", articleID, ErrNotFound)
	}
	return nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*Article, error) {
	var a Article
	var listID sql.NullString
	if err := row.Scan(&a.ID, &a.URL, &a.Title, &a.Content, &a.TextContent, &a.Excerpt,
		&a.Byline, &a.SiteName, &a.PublishedTime, &listID, &a.CreatedAt); err != nil {
		return nil, err
	}
	if listID.Valid {
		a.ListID = &listID.String
	}
	return &a, nil
}
