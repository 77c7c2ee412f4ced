package database

import (
	"database/sql"
	"errors"
	"fmt"
)

const listColumns = "id, name, COALESCE(position, 0), is_default, COALESCE(createdAt, 0)"

// GetLists returns all lists in display order.
func (db *DB) GetLists() ([]List, error) {
	rows, err := db.conn.Query(`SELECT ` + listColumns + ` FROM lists ORDER BY position ASC, createdAt ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

// GetList returns a single list, or nil if it does not exist.
func (db *DB) GetList(id string) (*List, error) {
	l, err := scanList(db.conn.QueryRow(`SELECT `+listColumns+` FROM lists WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// CreateList appends a list after the current last position.
func (db *DB) CreateList(name string) (*List, error) {
	var maxPos sql.NullInt64
	if err := db.conn.QueryRow("SELECT MAX(position) FROM lists").Scan(&maxPos); err != nil {
		return nil, fmt.Errorf("reading list positions: %w", err)
	}

	l := &List{
		ID:        newID(),
		Name:      name,
		Position:  int(maxPos.Int64) + 1,
		CreatedAt: db.now().Unix(),
	}
	if !maxPos.Valid {
		l.Position = 0
		l.IsDefault = true
	}

	_, err := db.conn.Exec(
		"INSERT INTO lists (id, name, position, is_default, createdAt) VALUES (?, ?, ?, ?, ?)",
		l.ID, l.Name, l.Position, l.IsDefault, l.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting list: %w", err)
	}
	return l, nil
}

// DefaultList returns the list that receives articles saved without one.
// The explicit default wins; otherwise the lowest-position list is used.
// Returns nil only when no lists exist.
func (db *DB) DefaultList() (*List, error) {
	l, err := scanList(db.conn.QueryRow(
		`SELECT ` + listColumns + ` FROM lists ORDER BY is_default DESC, position ASC, createdAt ASC LIMIT 1`,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// SetDefaultList marks one list as the default and clears the flag elsewhere.
func (db *DB) SetDefaultList(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := setDefaultTx(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteList removes a list. Its articles move to the default list; when the
// deleted list was the default, the lowest-position remaining list takes over.
// Deleting the last list leaves its articles unlisted.
func (db *DB) DeleteList(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var wasDefault bool
	err = tx.QueryRow("SELECT is_default FROM lists WHERE id = ?", id).Scan(&wasDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	var heir sql.NullString
	err = tx.QueryRow(
		`SELECT id FROM lists WHERE id != ? ORDER BY is_default DESC, position ASC, createdAt ASC LIMIT 1`, id,
	).Scan(&heir)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err := tx.Exec("UPDATE articles SET list_id = ? WHERE list_id = ?", heir, id); err != nil {
		return fmt.Errorf("reassigning articles: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM lists WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting list: %w", err)
	}
	if wasDefault && heir.Valid {
		if err := setDefaultTx(tx, heir.String); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func setDefaultTx(tx *sql.Tx, id string) error {
	var found int
	if err := tx.QueryRow("SELECT COUNT(*) FROM lists WHERE id = ?", id).Scan(&found); err != nil {
		return err
	}
	if found == 0 {
		return fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec("UPDATE lists SET is_default = (id = ?)", id); err != nil {
		return fmt.Errorf("setting default list: %w", err)
	}
	return nil
}

func scanList(row scanner) (*List, error) {
	var l List
	if err := row.Scan(&l.ID, &l.Name, &l.Position, &l.IsDefault, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
