package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/readstash/internal/config"
	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/logger"
	"github.com/TobiSchelling/readstash/internal/metrics"
	"github.com/TobiSchelling/readstash/internal/pipeline"
	"github.com/TobiSchelling/readstash/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "readstash",
	Short:        "Save articles for later and read them anywhere",
	Long:         "readstash saves web articles into a local library and exports them as EPUB.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logger.Init("info", true, verbose)
			return nil
		}

		var err error
		path, resolveErr := config.ResolveConfigPath(configPath)
		switch {
		case resolveErr == nil:
			cfg, err = config.Load(path)
		case configPath == "":
			cfg, err = config.LoadDefault()
		default:
			return resolveErr
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger.Init(cfg.Logging.Level, cfg.Logging.Pretty, verbose)
		if resolveErr != nil {
			log.Debug().Msg("no config file found, using defaults")
		} else {
			log.Debug().Str("path", path).Msg("loaded config")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(importFeedCmd)
	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("readstash", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/readstash/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to change the data directory, port, and export settings.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Library:")
		fmt.Printf("  Articles: %d\n", stats.Articles)
		fmt.Printf("  Unlisted: %d\n", stats.UnlistedArticles)
		fmt.Printf("  Tagged: %d\n", stats.TaggedArticles)
		fmt.Printf("  Lists: %d\n", stats.Lists)
		fmt.Printf("  Tags: %d\n", stats.Tags)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signalContext()
		defer stop()

		m := metrics.New()
		pipe := pipeline.New(cfg, db, m)

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, db, pipe, m, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "readstash.db")
	return database.Open(dbPath)
}

// openPipeline opens the database and a pipeline over it. Commands that run
// once do not export metrics.
func openPipeline() (*database.DB, *pipeline.Pipeline, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return db, pipeline.New(cfg, db, nil), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
