package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aidanlsb/wlh/internal/graph"
	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/model"
)

// Notifier receives document change events. *engine.Engine implements it.
type Notifier interface {
	DocumentSaved(id model.DocID) (bool, error)
	DocumentDeleted(id model.DocID) (graph.Result, error)
}

// File is one content file found by Walk.
type File struct {
	Path         string
	RelativePath string // slash-separated, relative to the content root
	Document     *model.Document
	Error        error
}

// Walk parses every content file under root and calls fn for each.
// Hidden directories are skipped. Parse errors are reported through
// File.Error; an error returned by fn stops the walk.
func Walk(root string, opts ParseOptions, fn func(File) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		if err != nil {
			if p == root {
				return err
			}
			return fn(File{Path: p, RelativePath: rel, Error: err})
		}
		if d.IsDir() {
			if p != root && ignoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsContentFile(p) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		doc, err := load(p, rel, opts)
		return fn(File{Path: p, RelativePath: rel, Document: doc, Error: err})
	})
}

func ignoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

func load(p, rel string, opts ParseOptions) (*model.Document, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(rel, string(data), info.ModTime(), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	return doc, nil
}

// Syncer mirrors a content directory into the document store and reports
// every change to a Notifier.
type Syncer struct {
	root   string
	db     *index.Database
	notify Notifier
	opts   ParseOptions
	log    *logger.Logger
}

// NewSyncer creates a Syncer for the content directory root.
func NewSyncer(root string, db *index.Database, notify Notifier, opts ParseOptions, log *logger.Logger) *Syncer {
	return &Syncer{root: root, db: db, notify: notify, opts: opts, log: logger.OrNop(log)}
}

// Root returns the content directory.
func (s *Syncer) Root() string { return s.root }

// FileError is a content file that could not be synced.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// SyncReport summarizes a sync.
type SyncReport struct {
	Saved     []model.DocID `json:"saved"`
	Queued    []model.DocID `json:"queued"`
	Deleted   []model.DocID `json:"deleted"`
	Unchanged int           `json:"unchanged"`
	Errors    []FileError   `json:"errors,omitempty"`
}

// SyncAll loads every content file, saving new and modified documents and
// deleting documents whose files are gone. With force, unchanged files are
// saved too. A file that fails to parse keeps its previous document.
func (s *Syncer) SyncAll(force bool) (*SyncReport, error) {
	known, err := s.db.SourcePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to read indexed files: %w", err)
	}

	report := &SyncReport{Saved: []model.DocID{}, Queued: []model.DocID{}, Deleted: []model.DocID{}}
	seen := make(map[string]bool, len(known))

	err = Walk(s.root, s.opts, func(f File) error {
		seen[f.RelativePath] = true
		if f.Error != nil {
			report.Errors = append(report.Errors, FileError{Path: f.RelativePath, Error: f.Error.Error()})
			return nil
		}
		if entry, ok := known[f.RelativePath]; ok && !force &&
			entry.ModifiedAt.Unix() == f.Document.ModifiedAt.Unix() &&
			(f.Document.ID == 0 || f.Document.ID == entry.ID) {
			report.Unchanged++
			return nil
		}

		id, queued, err := s.save(f.Document, known)
		if err != nil {
			var conflict *idConflictError
			if errors.As(err, &conflict) {
				report.Errors = append(report.Errors, FileError{Path: f.RelativePath, Error: err.Error()})
				return nil
			}
			return err
		}
		report.Saved = append(report.Saved, id)
		if queued {
			report.Queued = append(report.Queued, id)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	for rel, entry := range known {
		if seen[rel] {
			continue
		}
		if err := s.remove(entry.ID); err != nil {
			return report, err
		}
		report.Deleted = append(report.Deleted, entry.ID)
	}

	s.log.Info("synced content", "root", s.root, "saved", len(report.Saved),
		"deleted", len(report.Deleted), "unchanged", report.Unchanged, "errors", len(report.Errors))
	return report, nil
}

// SyncFile loads one content file (absolute, or relative to the root) and
// saves it. Returns the document id and whether it was queued.
func (s *Syncer) SyncFile(p string) (model.DocID, bool, error) {
	abs, rel, err := s.paths(p)
	if err != nil {
		return 0, false, err
	}
	doc, err := load(abs, rel, s.opts)
	if err != nil {
		return 0, false, err
	}
	known, err := s.db.SourcePaths()
	if err != nil {
		return 0, false, err
	}
	return s.save(doc, known)
}

// RemoveFile deletes the document loaded from a content file. Reports
// whether such a document existed.
func (s *Syncer) RemoveFile(p string) (model.DocID, bool, error) {
	_, rel, err := s.paths(p)
	if err != nil {
		return 0, false, err
	}
	doc, err := s.db.DocumentBySourcePath(rel)
	if err != nil || doc == nil {
		return 0, false, err
	}
	if err := s.remove(doc.ID); err != nil {
		return doc.ID, false, err
	}
	return doc.ID, true, nil
}

type idConflictError struct {
	id    model.DocID
	owner string
}

func (e *idConflictError) Error() string {
	return fmt.Sprintf("id %d is already used by %s", e.id, e.owner)
}

func (s *Syncer) save(doc *model.Document, known map[string]index.SourceEntry) (model.DocID, bool, error) {
	entry, hadEntry := known[doc.SourcePath]

	if doc.ID == 0 {
		if hadEntry {
			doc.ID = entry.ID
		} else {
			next, err := s.db.NextDocumentID()
			if err != nil {
				return 0, false, fmt.Errorf("failed to allocate document id: %w", err)
			}
			doc.ID = next
		}
	}

	existing, err := s.db.GetDocument(doc.ID)
	if err != nil {
		return 0, false, err
	}
	if existing != nil && existing.SourcePath != "" && existing.SourcePath != doc.SourcePath {
		return 0, false, &idConflictError{id: doc.ID, owner: existing.SourcePath}
	}

	// The file's frontmatter id changed: the old document is gone.
	if hadEntry && entry.ID != doc.ID {
		if err := s.remove(entry.ID); err != nil {
			return 0, false, err
		}
	}

	if err := s.db.UpsertDocument(doc); err != nil {
		return 0, false, err
	}
	queued, err := s.notify.DocumentSaved(doc.ID)
	if err != nil {
		return doc.ID, false, err
	}
	s.log.Debug("saved document", "doc_id", doc.ID, "path", doc.SourcePath, "queued", queued)
	return doc.ID, queued, nil
}

func (s *Syncer) remove(id model.DocID) error {
	if _, err := s.notify.DocumentDeleted(id); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(id); err != nil {
		return err
	}
	s.log.Debug("deleted document", "doc_id", id)
	return nil
}

func (s *Syncer) paths(p string) (abs, rel string, err error) {
	abs = p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, p)
	}
	rel, err = filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%s is outside the content directory", p)
	}
	return abs, filepath.ToSlash(rel), nil
}
