package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// legacyTables are present in every library written before the schema was
// versioned.
var legacyTables = []string{"lists", "articles"}

func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// modernc/sqlite ignores PRAGMA user_version inside a transaction, so the
// version is written after commit.
func setSchemaVersion(conn *sql.DB, version int) error {
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("setting schema version %d: %w", version, err)
	}
	return nil
}

// isLegacyDB reports whether an unversioned database already holds a library.
func isLegacyDB(conn *sql.DB) (bool, error) {
	for _, name := range legacyTables {
		var n int
		err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("checking for legacy table %s: %w", name, err)
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

// migrate applies every migration newer than the recorded user_version.
// A legacy library already has the version 1 tables and is stamped as such
// before the remaining steps run.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	if current == 0 {
		legacy, err := isLegacyDB(conn)
		if err != nil {
			return err
		}
		if legacy {
			log.Info().Msg("unversioned library found, stamping schema version 1")
			if err := setSchemaVersion(conn, 1); err != nil {
				return err
			}
			current = 1
		}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return err
		}
		current = m.Version
	}
	return nil
}

func applyMigration(conn *sql.DB, m Migration) error {
	log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("starting migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", m.Version, err)
	}
	return setSchemaVersion(conn, m.Version)
}
