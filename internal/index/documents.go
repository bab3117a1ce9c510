package index

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/resolver"
	"github.com/aidanlsb/wlh/internal/slugs"
)

// idQueryParams are the query parameters that address a document by id
// (e.g. "/?p=12").
var idQueryParams = []string{"p", "page_id", "doc"}

const documentColumns = "id, type, status, title, slug, body, format, revision, source_path, modified_at"

// SetBaseURL configures the site address used to map URLs to documents.
func (d *Database) SetBaseURL(base *url.URL) {
	d.base = base
}

// UpsertDocument inserts or replaces a document.
func (d *Database) UpsertDocument(doc *model.Document) error {
	if doc == nil || !doc.ID.Valid() {
		return fmt.Errorf("document id must be positive")
	}
	modified := doc.ModifiedAt
	if modified.IsZero() {
		modified = time.Now()
	}
	revision := 0
	if doc.Revision {
		revision = 1
	}
	_, err := d.db.Exec(`
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			status = excluded.status,
			title = excluded.title,
			slug = excluded.slug,
			body = excluded.body,
			format = excluded.format,
			revision = excluded.revision,
			source_path = excluded.source_path,
			modified_at = excluded.modified_at
	`,
		int64(doc.ID),
		doc.Type,
		doc.Status,
		doc.Title,
		slugs.Normalize(doc.Slug),
		doc.Body,
		string(doc.BodyFormat()),
		revision,
		doc.SourcePath,
		modified.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store document %d: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document, or nil when it does not exist.
func (d *Database) GetDocument(id model.DocID) (*model.Document, error) {
	row := d.db.QueryRow("SELECT "+documentColumns+" FROM documents WHERE id = ?", int64(id))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %d: %w", id, err)
	}
	return doc, nil
}

// GetDocuments returns the existing documents among ids, in the order given.
func (d *Database) GetDocuments(ids []model.DocID) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := idList(ids)
	rows, err := d.db.Query("SELECT "+documentColumns+" FROM documents WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	found, err := collect(rows, func(rows *sql.Rows) (*model.Document, error) {
		return scanDocument(rows)
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[model.DocID]*model.Document, len(found))
	for _, doc := range found {
		byID[doc.ID] = doc
	}
	out := make([]*model.Document, 0, len(found))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			out = append(out, doc)
			delete(byID, id)
		}
	}
	return out, nil
}

// DeleteDocument removes a document and all of its attributes.
func (d *Database) DeleteDocument(id model.DocID) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM attributes WHERE doc_id = ?",
		"DELETE FROM documents WHERE id = ?",
	} {
		if _, err := tx.Exec(stmt, int64(id)); err != nil {
			return fmt.Errorf("failed to delete document %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// AllDocumentIDs returns every document id, ascending.
func (d *Database) AllDocumentIDs() ([]model.DocID, error) {
	rows, err := d.db.Query("SELECT id FROM documents ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// SourceEntry describes a document loaded from a content file.
type SourceEntry struct {
	ID         model.DocID
	ModifiedAt time.Time
}

// SourcePaths maps content file paths to the documents loaded from them.
func (d *Database) SourcePaths() (map[string]SourceEntry, error) {
	rows, err := d.db.Query("SELECT source_path, id, modified_at FROM documents WHERE source_path != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]SourceEntry)
	for rows.Next() {
		var path string
		var id, mtime int64
		if err := rows.Scan(&path, &id, &mtime); err != nil {
			return nil, err
		}
		out[path] = SourceEntry{ID: model.DocID(id), ModifiedAt: time.Unix(mtime, 0)}
	}
	return out, rows.Err()
}

// DocumentBySourcePath returns the document loaded from a content file, or nil.
func (d *Database) DocumentBySourcePath(sourcePath string) (*model.Document, error) {
	row := d.db.QueryRow("SELECT "+documentColumns+" FROM documents WHERE source_path = ?", sourcePath)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// NextDocumentID returns an id one above the highest in use.
func (d *Database) NextDocumentID() (model.DocID, error) {
	var maxID sql.NullInt64
	if err := d.db.QueryRow("SELECT MAX(id) FROM documents").Scan(&maxID); err != nil {
		return 0, err
	}
	return model.DocID(maxID.Int64 + 1), nil
}

// URLToDocumentID maps an internal URL to a document id.
//
// Id query parameters ("?p=12") win; otherwise the path relative to the base
// address is matched against document slugs, first exactly and then in
// slugified form. Revisions never match. The home page maps to nothing.
func (d *Database) URLToDocumentID(u *url.URL) (model.DocID, bool) {
	if u == nil {
		return 0, false
	}
	query := u.Query()
	for _, param := range idQueryParams {
		if id, ok := model.ParseDocID(query.Get(param)); ok {
			return id, true
		}
	}

	rel := strings.Trim(u.Path, "/")
	if d.base != nil {
		rel = resolver.RelativePath(d.base, u)
	}
	rel = slugs.Normalize(rel)
	if rel == "" {
		return 0, false
	}

	for _, candidate := range uniqueStrings(rel, slugs.PathSlug(rel)) {
		var id int64
		err := d.db.QueryRow(
			"SELECT id FROM documents WHERE slug = ? AND revision = 0 ORDER BY id LIMIT 1",
			candidate,
		).Scan(&id)
		if err == nil {
			return model.DocID(id), true
		}
	}
	return 0, false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc      model.Document
		id       int64
		format   string
		revision int
		mtime    int64
	)
	err := row.Scan(&id, &doc.Type, &doc.Status, &doc.Title, &doc.Slug, &doc.Body, &format, &revision, &doc.SourcePath, &mtime)
	if err != nil {
		return nil, err
	}
	doc.ID = model.DocID(id)
	doc.Format = model.Format(format)
	doc.Revision = revision != 0
	doc.ModifiedAt = time.Unix(mtime, 0)
	return &doc, nil
}

func uniqueStrings(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
