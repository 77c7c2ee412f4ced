package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/sanitize"
)

// --- lists command ---

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Manage reading lists",
}

var listsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all reading lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		lists, err := db.GetLists()
		if err != nil {
			return err
		}
		if len(lists) == 0 {
			fmt.Println("No lists defined. Add one with: readstash lists add <name>")
			return nil
		}
		fmt.Println("Lists:")
		fmt.Println()
		for _, l := range lists {
			icon := " "
			if l.IsDefault {
				icon = "*"
			}
			fmt.Printf("  [%s] %s %s\n", l.ID, icon, l.Name)
		}
		return nil
	},
}

var listsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a reading list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		l, err := db.CreateList(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Added list [%s]: %s\n", l.ID, l.Name)
		return nil
	},
}

var listsRemoveCmd = &cobra.Command{
	Use:   "remove [list]",
	Short: "Delete a reading list; its articles move to the default list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := resolveList(db, args[0])
		if err != nil {
			return err
		}
		if err := db.DeleteList(id); err != nil {
			return err
		}
		fmt.Printf("Removed list [%s]\n", id)
		return nil
	},
}

var listsDefaultCmd = &cobra.Command{
	Use:   "default [list]",
	Short: "Make a list the default for new articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := resolveList(db, args[0])
		if err != nil {
			return err
		}
		if err := db.SetDefaultList(id); err != nil {
			return err
		}
		fmt.Printf("Default list is now [%s]\n", id)
		return nil
	},
}

func init() {
	listsCmd.AddCommand(listsListCmd)
	listsCmd.AddCommand(listsAddCmd)
	listsCmd.AddCommand(listsRemoveCmd)
	listsCmd.AddCommand(listsDefaultCmd)
}

// --- tags command ---

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tags, err := db.GetTags()
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags yet.")
			return nil
		}
		for _, t := range tags {
			fmt.Printf("  [%s] #%s\n", t.ID, t.Name)
		}
		return nil
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		t, err := db.CreateTag(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Tag [%s]: #%s\n", t.ID, t.Name)
		return nil
	},
}

func init() {
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsAddCmd)
}

// --- library command ---

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Back up or restore the whole library as JSON",
}

var libraryExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the library to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		lib, err := db.ExportLibrary()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(lib, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding library: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("writing library: %w", err)
		}
		fmt.Printf("Exported %d articles, %d lists, %d tags to %s\n",
			len(lib.Articles), len(lib.Lists), len(lib.Tags), args[0])
		return nil
	},
}

var libraryImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Merge a JSON library backup into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading library: %w", err)
		}
		var lib database.Library
		if err := json.Unmarshal(data, &lib); err != nil {
			return fmt.Errorf("parsing library: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.ImportLibrary(&lib, sanitize.HTML)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d articles, %d lists, %d tags, %d tag links\n",
			res.Articles, res.Lists, res.Tags, res.ArticleTags)
		return nil
	},
}

func init() {
	libraryCmd.AddCommand(libraryExportCmd)
	libraryCmd.AddCommand(libraryImportCmd)
}
