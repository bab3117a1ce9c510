package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/wlh/internal/model"
)

// GetAttribute returns the attribute value stored for a document.
// The boolean is false when the attribute is absent.
func (d *Database) GetAttribute(id model.DocID, key string) (string, bool, error) {
	var value string
	err := d.db.QueryRow(
		"SELECT meta_value FROM attributes WHERE doc_id = ? AND meta_key = ?",
		int64(id), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s of %d: %w", key, id, err)
	}
	return value, true, nil
}

// SetAttribute creates or replaces an attribute.
func (d *Database) SetAttribute(id model.DocID, key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO attributes (doc_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT (doc_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value
	`, int64(id), key, value)
	if err != nil {
		return fmt.Errorf("failed to write attribute %s of %d: %w", key, id, err)
	}
	return nil
}

// DeleteAttribute removes an attribute. Deleting an absent attribute is not an error.
func (d *Database) DeleteAttribute(id model.DocID, key string) error {
	if _, err := d.db.Exec("DELETE FROM attributes WHERE doc_id = ? AND meta_key = ?", int64(id), key); err != nil {
		return fmt.Errorf("failed to delete attribute %s of %d: %w", key, id, err)
	}
	return nil
}

// DeleteAttributes removes every attribute of a document.
func (d *Database) DeleteAttributes(id model.DocID) error {
	if _, err := d.db.Exec("DELETE FROM attributes WHERE doc_id = ?", int64(id)); err != nil {
		return fmt.Errorf("failed to delete attributes of %d: %w", id, err)
	}
	return nil
}

// DocumentsWithAttribute returns the ids of documents carrying key, ascending.
func (d *Database) DocumentsWithAttribute(key string) ([]model.DocID, error) {
	rows, err := d.db.Query("SELECT doc_id FROM attributes WHERE meta_key = ? ORDER BY doc_id", key)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// GetOption returns a process-wide option. The boolean is false when absent.
func (d *Database) GetOption(name string) (string, bool, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM options WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read option %s: %w", name, err)
	}
	return value, true, nil
}

// SetOption creates or replaces an option.
func (d *Database) SetOption(name, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to write option %s: %w", name, err)
	}
	return nil
}

// AddOption creates an option only if it does not exist yet.
// Reports whether the option was created.
func (d *Database) AddOption(name, value string) (bool, error) {
	res, err := d.db.Exec("INSERT OR IGNORE INTO options (name, value) VALUES (?, ?)", name, value)
	if err != nil {
		return false, fmt.Errorf("failed to add option %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteOption removes an option. Deleting an absent option is not an error.
func (d *Database) DeleteOption(name string) error {
	if _, err := d.db.Exec("DELETE FROM options WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete option %s: %w", name, err)
	}
	return nil
}
