// Package testutil provides reusable fixtures for link index tests.
package testutil

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/scheduler"
)

// DefaultBaseURL is the site address used unless WithBaseURL overrides it.
const DefaultBaseURL = "https://example.com"

// TestSite is a temporary site: a directory for content files and an
// in-memory index with an installed engine.
type TestSite struct {
	Path     string
	BaseURL  string
	DB       *index.Database
	Engine   *engine.Engine
	Schedule *scheduler.Registry

	t         *testing.T
	hooks     *hooks.Hooks
	postTypes []string
	docs      []*model.Document
	files     map[string]string
}

// NewTestSite creates a new test site builder.
// Call Build() to create the site.
func NewTestSite(t *testing.T) *TestSite {
	t.Helper()
	return &TestSite{
		t:       t,
		BaseURL: DefaultBaseURL,
		files:   make(map[string]string),
	}
}

func (s *TestSite) WithBaseURL(base string) *TestSite {
	s.BaseURL = base
	return s
}

func (s *TestSite) WithHooks(h *hooks.Hooks) *TestSite {
	s.hooks = h
	return s
}

func (s *TestSite) WithPostTypes(types ...string) *TestSite {
	s.postTypes = types
	return s
}

// WithDocument adds a document to the index.
func (s *TestSite) WithDocument(doc model.Document) *TestSite {
	s.docs = append(s.docs, &doc)
	return s
}

// WithPost adds a published HTML post.
func (s *TestSite) WithPost(id model.DocID, slug, body string) *TestSite {
	return s.WithDocument(model.Document{
		ID:     id,
		Type:   "post",
		Status: model.StatusPublished,
		Title:  "Post " + id.String(),
		Slug:   slug,
		Body:   body,
	})
}

// WithFile adds a file to the site directory.
// The path is relative to the site root.
func (s *TestSite) WithFile(path, content string) *TestSite {
	s.files[path] = content
	return s
}

// Build creates the site directory, the index and an installed engine.
func (s *TestSite) Build() *TestSite {
	s.t.Helper()

	s.Path = s.t.TempDir()
	for path, content := range s.files {
		s.WriteFile(path, content)
	}

	db, err := index.OpenInMemory()
	if err != nil {
		s.t.Fatalf("failed to open index: %v", err)
	}
	s.t.Cleanup(func() { db.Close() })
	s.DB = db

	base, err := url.Parse(s.BaseURL)
	if err != nil {
		s.t.Fatalf("invalid base url %q: %v", s.BaseURL, err)
	}
	db.SetBaseURL(base)

	for _, doc := range s.docs {
		if err := db.UpsertDocument(doc); err != nil {
			s.t.Fatalf("failed to add document %d: %v", doc.ID, err)
		}
	}

	s.Schedule = scheduler.NewRegistry(db)
	eng, err := engine.New(engine.Config{
		BaseURL:    s.BaseURL,
		PostTypes:  s.postTypes,
		Documents:  db,
		Attributes: db,
		Options:    db,
		Scheduler:  s.Schedule,
		Hooks:      s.hooks,
	})
	if err != nil {
		s.t.Fatalf("failed to create engine: %v", err)
	}
	if err := eng.Install(); err != nil {
		s.t.Fatalf("failed to install engine: %v", err)
	}
	s.Engine = eng
	return s
}

// URL returns the absolute address of a slug on the site.
func (s *TestSite) URL(slug string) string {
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(slug, "/")
}

// Anchor returns an HTML anchor to a slug on the site.
func (s *TestSite) Anchor(slug string) string {
	return `<a href="` + s.URL(slug) + `">` + slug + `</a>`
}

// Save stores doc and reports the change to the engine.
func (s *TestSite) Save(doc model.Document) {
	s.t.Helper()
	if err := s.DB.UpsertDocument(&doc); err != nil {
		s.t.Fatalf("failed to save document %d: %v", doc.ID, err)
	}
	if _, err := s.Engine.DocumentSaved(doc.ID); err != nil {
		s.t.Fatalf("DocumentSaved(%d): %v", doc.ID, err)
	}
}

// Process reconciles the given documents immediately.
func (s *TestSite) Process(ids ...model.DocID) {
	s.t.Helper()
	for _, id := range ids {
		if _, err := s.Engine.Process(id); err != nil {
			s.t.Fatalf("Process(%d): %v", id, err)
		}
	}
}

// Delete removes a document from the graph and the index.
func (s *TestSite) Delete(id model.DocID) {
	s.t.Helper()
	if _, err := s.Engine.DocumentDeleted(id); err != nil {
		s.t.Fatalf("DocumentDeleted(%d): %v", id, err)
	}
	if err := s.DB.DeleteDocument(id); err != nil {
		s.t.Fatalf("failed to delete document %d: %v", id, err)
	}
}

// WriteFile writes a file to the site, creating directories as needed.
func (s *TestSite) WriteFile(relPath, content string) {
	s.t.Helper()
	fullPath := filepath.Join(s.Path, relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		s.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// AssertLinkingHere fails the test unless the inbound list of id equals want.
func (s *TestSite) AssertLinkingHere(id model.DocID, want ...model.DocID) {
	s.t.Helper()
	got, err := s.Engine.LinkingHere(id)
	if err != nil {
		s.t.Fatalf("LinkingHere(%d): %v", id, err)
	}
	assertIDs(s.t, "linking here", id, got, want)
}

// AssertLinkingTo fails the test unless the outbound list of id equals want.
func (s *TestSite) AssertLinkingTo(id model.DocID, want ...model.DocID) {
	s.t.Helper()
	got, err := s.Engine.LinkingTo(id)
	if err != nil {
		s.t.Fatalf("LinkingTo(%d): %v", id, err)
	}
	assertIDs(s.t, "linking to", id, got, want)
}

// AssertConsistent fails the test if any edge is stored in one direction only.
func (s *TestSite) AssertConsistent() {
	s.t.Helper()
	ids, err := s.DB.AllDocumentIDs()
	if err != nil {
		s.t.Fatalf("failed to list documents: %v", err)
	}
	found, err := s.Engine.Verify(ids)
	if err != nil {
		s.t.Fatalf("Verify: %v", err)
	}
	for _, inc := range found {
		s.t.Errorf("inconsistent edge: %s", inc)
	}
}

func assertIDs(t *testing.T, what string, id model.DocID, got, want []model.DocID) {
	t.Helper()
	if model.FormatIDList(got) != model.FormatIDList(want) || len(got) != len(want) {
		t.Errorf("%s %d = %v, want %v", what, id, got, want)
	}
}
