package database

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

// tick makes createdAt strictly increasing between inserts.
func tick(db *DB) {
	base := time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC)
	n := 0
	db.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func insert(t *testing.T, db *DB, url, title string) *Article {
	t.Helper()
	a, err := db.InsertArticle(NewArticle{URL: url, Title: title, Content: "<p>" + title + "</p>"})
	if err != nil {
		t.Fatalf("insert %s: %v", url, err)
	}
	return a
}

func TestOpenSeedsDefaultList(t *testing.T) {
	db := openTestDB(t)

	lists, err := db.GetLists()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 seeded list, got %d", len(lists))
	}
	if lists[0].Name != DefaultListName || !lists[0].IsDefault {
		t.Errorf("expected default %q, got %+v", DefaultListName, lists[0])
	}
}

func TestInsertArticleUsesDefaultList(t *testing.T) {
	db := openTestDB(t)
	def, _ := db.DefaultList()

	a := insert(t, db, "https://example.com/a", "A")
	if a.ID == "" {
		t.Fatal("expected an article ID")
	}
	if a.ListID == nil || *a.ListID != def.ID {
		t.Errorf("expected article in default list %s, got %v", def.ID, a.ListID)
	}
}

func TestInsertSameURLTwice(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://example.com/dup", "First")
	b := insert(t, db, "https://example.com/dup", "Again")
	if a.ID == b.ID {
		t.Error("expected distinct IDs for the same URL")
	}
}

func TestGetArticle(t *testing.T) {
	db := openTestDB(t)
	in := NewArticle{
		URL:           "https://example.com/post",
		Title:         "Tom & Jerry",
		Content:       "<p>Body</p>",
		TextContent:   "Body",
		Excerpt:       "Body",
		Byline:        "Jane",
		SiteName:      "Example",
		PublishedTime: "2026-01-02T03:04:05Z",
	}
	saved, err := db.InsertArticle(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.GetArticle(saved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected article")
	}
	if got.Title != in.Title || got.Byline != in.Byline || got.PublishedTime != in.PublishedTime {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CreatedAt == 0 {
		t.Error("expected createdAt to be set")
	}
}

func TestGetArticleMissing(t *testing.T) {
	db := openTestDB(t)
	a, err := db.GetArticle("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("expected nil for missing article")
	}
}

func TestGetArticlesFilters(t *testing.T) {
	db := openTestDB(t)
	tick(db)
	later, _ := db.CreateList("Later")

	a := insert(t, db, "https://a.com", "A")
	b := insert(t, db, "https://b.com", "B")
	c, _ := db.InsertArticle(NewArticle{URL: "https://c.com", Title: "C", ListID: &later.ID})
	db.AddTagToArticle(a.ID, "Favorites")
	db.AddTagToArticle(c.ID, "Favorites")

	all, err := db.GetArticles(ArticleFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(all))
	}
	if all[0].ID != c.ID || all[2].ID != a.ID {
		t.Error("expected newest first")
	}

	inLater, _ := db.GetArticles(ArticleFilter{ListID: later.ID})
	if len(inLater) != 1 || inLater[0].ID != c.ID {
		t.Errorf("expected only C in Later, got %d", len(inLater))
	}

	favs, _ := db.GetArticles(ArticleFilter{Tag: "Favorites"})
	if len(favs) != 2 {
		t.Errorf("expected 2 favorites, got %d", len(favs))
	}
	for _, f := range favs {
		if f.ID == b.ID {
			t.Error("untagged article matched tag filter")
		}
		if len(f.Tags) != 1 || f.Tags[0].Name != "Favorites" {
			t.Errorf("expected tags loaded, got %+v", f.Tags)
		}
	}
}

func TestDeleteArticleCascadesTags(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://a.com", "A")
	db.AddTagToArticle(a.ID, "x")

	if err := db.DeleteArticle(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, _ := db.GetStats()
	if stats.Articles != 0 || stats.TaggedArticles != 0 {
		t.Errorf("expected empty library, got %+v", stats)
	}
	if stats.Tags != 1 {
		t.Errorf("expected tag to survive, got %d", stats.Tags)
	}
}

func TestDeleteAllArticles(t *testing.T) {
	db := openTestDB(t)
	insert(t, db, "https://a.com", "A")
	insert(t, db, "https://b.com", "B")

	if err := db.DeleteAllArticles(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := db.GetArticles(ArticleFilter{})
	if len(all) != 0 {
		t.Errorf("expected no articles, got %d", len(all))
	}
}

func TestUpdateArticleList(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://a.com", "A")
	archive, _ := db.CreateList("Archive")

	if err := db.UpdateArticleList(a.ID, archive.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := db.GetArticle(a.ID)
	if got.ListID == nil || *got.ListID != archive.ID {
		t.Error("expected article moved to Archive")
	}

	err := db.UpdateArticleList("missing", archive.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateListPositions(t *testing.T) {
	db := openTestDB(t)
	one, _ := db.CreateList("One")
	two, _ := db.CreateList("Two")

	if one.Position != 1 || two.Position != 2 {
		t.Errorf("expected positions 1 and 2, got %d and %d", one.Position, two.Position)
	}
	if one.IsDefault || two.IsDefault {
		t.Error("new lists must not steal the default")
	}

	lists, _ := db.GetLists()
	names := make([]string, len(lists))
	for i, l := range lists {
		names[i] = l.Name
	}
	if strings.Join(names, ",") != DefaultListName+",One,Two" {
		t.Errorf("unexpected order: %v", names)
	}
}

func TestSetDefaultList(t *testing.T) {
	db := openTestDB(t)
	later, _ := db.CreateList("Later")

	if err := db.SetDefaultList(later.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def, _ := db.DefaultList()
	if def.ID != later.ID {
		t.Errorf("expected Later as default, got %s", def.Name)
	}

	a := insert(t, db, "https://a.com", "A")
	if *a.ListID != later.ID {
		t.Error("expected new article in the new default list")
	}

	if err := db.SetDefaultList("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	def, _ = db.DefaultList()
	if def.ID != later.ID {
		t.Error("failed SetDefaultList must not clear the default")
	}
}

func TestDeleteDefaultListPromotesNext(t *testing.T) {
	db := openTestDB(t)
	orig, _ := db.DefaultList()
	next, _ := db.CreateList("Next")
	a := insert(t, db, "https://a.com", "A")

	if err := db.DeleteList(orig.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def, _ := db.DefaultList()
	if def == nil || def.ID != next.ID || !def.IsDefault {
		t.Fatalf("expected Next promoted to default, got %+v", def)
	}
	got, _ := db.GetArticle(a.ID)
	if got.ListID == nil || *got.ListID != next.ID {
		t.Error("expected article moved to the new default list")
	}
}

func TestDeleteLastList(t *testing.T) {
	db := openTestDB(t)
	orig, _ := db.DefaultList()
	a := insert(t, db, "https://a.com", "A")

	if err := db.DeleteList(orig.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := db.GetArticle(a.ID)
	if got.ListID != nil {
		t.Error("expected article to become unlisted")
	}
	if err := db.DeleteList(orig.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTagIsUnique(t *testing.T) {
	db := openTestDB(t)
	t1, err := db.CreateTag("Favorites")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, _ := db.CreateTag(" Favorites ")
	if t1.ID != t2.ID {
		t.Error("expected existing tag for duplicate name")
	}
	if _, err := db.CreateTag("  "); err == nil {
		t.Error("expected error for empty tag name")
	}
}

func TestTagLifecycle(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://a.com", "A")

	tag, err := db.AddTagToArticle(a.ID, "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.AddTagToArticle(a.ID, "go"); err != nil {
		t.Fatalf("re-adding a tag should be a no-op: %v", err)
	}

	got, _ := db.GetArticle(a.ID)
	if len(got.Tags) != 1 || got.Tags[0].ID != tag.ID {
		t.Fatalf("expected one tag, got %+v", got.Tags)
	}

	if err := db.RemoveTagFromArticle(a.ID, tag.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = db.GetArticle(a.ID)
	if len(got.Tags) != 0 {
		t.Error("expected tag removed")
	}

	if _, err := db.AddTagToArticle("missing", "go"); err == nil {
		t.Error("expected foreign key error for missing article")
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://a.com", "A")
	insert(t, db, "https://b.com", "B")
	db.AddTagToArticle(a.ID, "x")

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Articles != 2 || stats.Lists != 1 || stats.Tags != 1 || stats.TaggedArticles != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
