package database

import (
	"strings"
	"testing"
)

func stripScripts(s string) string {
	return strings.ReplaceAll(s, "<script>alert(1)</script>", "")
}

func TestExportLibrary(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://a.com", "A")
	db.AddTagToArticle(a.ID, "Favorites")

	lib, err := db.ExportLibrary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lib.Lists) != 1 || len(lib.Articles) != 1 || len(lib.Tags) != 1 || len(lib.ArticleTags) != 1 {
		t.Errorf("unexpected export: %+v", lib)
	}
	if lib.ArticleTags[0].ArticleID != a.ID {
		t.Error("expected tag link for the article")
	}
}

func TestImportLibraryIntoFreshStore(t *testing.T) {
	src := openTestDB(t)
	later, _ := src.CreateList("Later")
	a, _ := src.InsertArticle(NewArticle{URL: "https://a.com", Title: "A", Content: "<p>Hello</p>", ListID: &later.ID})
	src.AddTagToArticle(a.ID, "Favorites")
	lib, _ := src.ExportLibrary()

	dst := openTestDB(t)
	res, err := dst.ImportLibrary(lib, func(s string) string { return s })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Articles != 1 || res.Lists != 2 || res.Tags != 1 || res.ArticleTags != 1 {
		t.Errorf("unexpected import counts: %+v", res)
	}

	got, _ := dst.GetArticle(a.ID)
	if got == nil {
		t.Fatal("expected imported article")
	}
	if got.ListID == nil || *got.ListID != later.ID {
		t.Error("expected list membership preserved")
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "Favorites" {
		t.Errorf("expected Favorites tag, got %+v", got.Tags)
	}

	defaults := 0
	lists, _ := dst.GetLists()
	for _, l := range lists {
		if l.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly one default list, got %d", defaults)
	}
}

func TestImportLibrarySanitizesAndDerivesText(t *testing.T) {
	db := openTestDB(t)
	lib := &Library{
		Articles: []Article{{
			ID:        "imported-1",
			URL:       "https://a.com",
			Title:     "Imported",
			Content:   "<p>Plain words</p><script>alert(1)</script>",
			ListID:    ptr("no-such-list"),
			CreatedAt: 1700000000,
		}},
	}

	if _, err := db.ImportLibrary(lib, stripScripts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := db.GetArticle("imported-1")
	if strings.Contains(got.Content, "<script>") {
		t.Error("expected imported content to be sanitized")
	}
	if !strings.Contains(got.TextContent, "Plain words") {
		t.Errorf("expected derived text content, got %q", got.TextContent)
	}
	def, _ := db.DefaultList()
	if got.ListID == nil || *got.ListID != def.ID {
		t.Error("expected unknown list to fall back to the default list")
	}
}

func TestImportLibraryRemapsTagsByName(t *testing.T) {
	db := openTestDB(t)
	existing, _ := db.CreateTag("Favorites")

	lib := &Library{
		Tags:        []Tag{{ID: "other-id", Name: "Favorites"}},
		Articles:    []Article{{ID: "a1", URL: "https://a.com", Title: "A"}},
		ArticleTags: []ArticleTag{{ArticleID: "a1", TagID: "other-id"}},
	}
	if _, err := db.ImportLibrary(lib, func(s string) string { return s }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := db.GetArticle("a1")
	if len(got.Tags) != 1 || got.Tags[0].ID != existing.ID {
		t.Errorf("expected link to existing tag, got %+v", got.Tags)
	}
	tags, _ := db.GetTags()
	if len(tags) != 1 {
		t.Errorf("expected no duplicate tag, got %d", len(tags))
	}
}

func TestImportLibraryIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	a := insert(t, db, "https://a.com", "A")
	lib, _ := db.ExportLibrary()

	if _, err := db.ImportLibrary(lib, func(s string) string { return s }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := db.GetArticles(ArticleFilter{})
	if len(all) != 1 || all[0].ID != a.ID {
		t.Errorf("expected a single article after re-import, got %d", len(all))
	}
}
