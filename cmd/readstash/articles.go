package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/readstash/internal/collect"
	"github.com/TobiSchelling/readstash/internal/database"
)

// --- add command ---

var addList string

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Save an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, pipe, err := openPipeline()
		if err != nil {
			return err
		}
		defer db.Close()

		listID, err := resolveList(db, addList)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := pipe.Ingest(ctx, args[0], listID)
		if err != nil {
			return err
		}
		fmt.Printf("Saved [%s]: %s\n", a.ID, a.Title)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addList, "list", "l", "", "List name or ID to save into")
}

// --- import-feed command ---

var (
	feedLimit int
	feedList  string
)

var importFeedCmd = &cobra.Command{
	Use:   "import-feed [url]",
	Short: "Save every entry of an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, pipe, err := openPipeline()
		if err != nil {
			return err
		}
		defer db.Close()

		listID, err := resolveList(db, feedList)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		entries, err := collect.NewFeedParser(pipe.Fetcher()).Parse(ctx, args[0], feedLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Feed has no entries.")
			return nil
		}

		saved, failed := 0, 0
		for i, e := range entries {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Printf("  [%d/%d] %s\n", i+1, len(entries), e.URL)
			if _, err := pipe.Ingest(ctx, e.URL, listID); err != nil {
				log.Warn().Str("url", e.URL).Err(err).Msg("skipping feed entry")
				failed++
				continue
			}
			saved++
		}
		fmt.Printf("\nSaved %d of %d entries (%d failed)\n", saved, len(entries), failed)
		return nil
	},
}

func init() {
	importFeedCmd.Flags().IntVarP(&feedLimit, "limit", "n", collect.DefaultLimit, "Maximum entries to import")
	importFeedCmd.Flags().StringVarP(&feedList, "list", "l", "", "List name or ID to save into")
}

// --- articles command ---

var (
	articlesList string
	articlesTag  string
	articlesJSON bool
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List saved articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		listID := ""
		if articlesList != "" {
			if listID, err = resolveList(db, articlesList); err != nil {
				return err
			}
		}
		articles, err := db.GetArticles(database.ArticleFilter{ListID: listID, Tag: articlesTag})
		if err != nil {
			return err
		}

		if articlesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if articles == nil {
				articles = []database.Article{}
			}
			return enc.Encode(articles)
		}

		if len(articles) == 0 {
			fmt.Println("No articles saved. Add one with: readstash add <url>")
			return nil
		}
		for _, a := range articles {
			fmt.Printf("  [%s] %s\n", a.ID, a.Title)
			meta := []string{time.Unix(a.CreatedAt, 0).Format("2006-01-02")}
			if a.SiteName != "" {
				meta = append(meta, a.SiteName)
			}
			for _, t := range a.Tags {
				meta = append(meta, "#"+t.Name)
			}
			fmt.Printf("        %s\n", strings.Join(meta, "  "))
		}
		return nil
	},
}

func init() {
	articlesCmd.Flags().StringVar(&articlesList, "list", "", "Only articles in this list (name or ID)")
	articlesCmd.Flags().StringVar(&articlesTag, "tag", "", "Only articles with this tag")
	articlesCmd.Flags().BoolVar(&articlesJSON, "json", false, "Print as JSON")
}

// --- remove command ---

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Delete a saved article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := db.GetArticle(args[0])
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("article %s not found", args[0])
		}
		if err := db.DeleteArticle(a.ID); err != nil {
			return err
		}
		fmt.Printf("Removed [%s]: %s\n", a.ID, a.Title)
		return nil
	},
}

// --- export command ---

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a saved article as EPUB",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, pipe, err := openPipeline()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signalContext()
		defer stop()

		pkg, err := pipe.ExportEPUB(ctx, args[0])
		if err != nil {
			return err
		}

		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		target := filepath.Join(exportDir, pkg.Filename)
		if err := os.WriteFile(target, pkg.Data, 0o644); err != nil {
			return fmt.Errorf("writing epub: %w", err)
		}

		fmt.Printf("Wrote %s (%d images", target, len(pkg.Images))
		if pkg.DroppedImages > 0 {
			fmt.Printf(", %d dropped", pkg.DroppedImages)
		}
		fmt.Println(")")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "Directory to write the EPUB into")
}

// --- tag command ---

var tagCmd = &cobra.Command{
	Use:   "tag [article-id] [tag]",
	Short: "Tag a saved article",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := db.GetArticle(args[0])
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("article %s not found", args[0])
		}
		t, err := db.AddTagToArticle(a.ID, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Tagged [%s] %s: #%s\n", a.ID, a.Title, t.Name)
		return nil
	},
}

// resolveList accepts a list ID or a list name. Empty means the default.
func resolveList(db *database.DB, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	lists, err := db.GetLists()
	if err != nil {
		return "", err
	}
	for _, l := range lists {
		if l.ID == ref || strings.EqualFold(l.Name, ref) {
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("list %q not found", ref)
}
