package index

import (
	"database/sql"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/aidanlsb/wlh/internal/model"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	base, _ := url.Parse("https://example.com/blog")
	db.SetBaseURL(base)
	return db
}

func mustUpsert(t *testing.T, db *Database, doc model.Document) {
	t.Helper()
	if doc.Type == "" {
		doc.Type = "post"
	}
	if doc.Status == "" {
		doc.Status = model.StatusPublished
	}
	if err := db.UpsertDocument(&doc); err != nil {
		t.Fatalf("UpsertDocument(%d): %v", doc.ID, err)
	}
}

func TestDatabase(t *testing.T) {
	t.Run("initialization", func(t *testing.T) {
		db := openTestDB(t)

		stats, err := db.Stats()
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if stats.DocumentCount != 0 {
			t.Errorf("expected 0 documents, got %d", stats.DocumentCount)
		}
	})

	t.Run("upsert and get", func(t *testing.T) {
		db := openTestDB(t)
		mtime := time.Unix(1700000000, 0)
		mustUpsert(t, db, model.Document{ID: 4, Title: "Four", Slug: "/Four/", Body: "<p>x</p>", SourcePath: "four.html", ModifiedAt: mtime})

		doc, err := db.GetDocument(4)
		if err != nil {
			t.Fatal(err)
		}
		if doc == nil {
			t.Fatal("expected document 4")
		}
		if doc.Slug != "Four" {
			t.Errorf("slug = %q, want trimmed %q", doc.Slug, "Four")
		}
		if !doc.ModifiedAt.Equal(mtime) {
			t.Errorf("modified_at = %v, want %v", doc.ModifiedAt, mtime)
		}
		if doc.BodyFormat() != model.FormatHTML {
			t.Errorf("format = %q", doc.Format)
		}

		mustUpsert(t, db, model.Document{ID: 4, Title: "Four again", Status: model.StatusDraft})
		doc, _ = db.GetDocument(4)
		if doc.Title != "Four again" || doc.Status != model.StatusDraft {
			t.Errorf("upsert did not replace the document: %+v", doc)
		}
	})

	t.Run("missing document is nil", func(t *testing.T) {
		db := openTestDB(t)
		doc, err := db.GetDocument(99)
		if err != nil || doc != nil {
			t.Fatalf("GetDocument(99) = %v, %v; want nil, nil", doc, err)
		}
	})

	t.Run("invalid id rejected", func(t *testing.T) {
		db := openTestDB(t)
		if err := db.UpsertDocument(&model.Document{ID: 0, Type: "post"}); err == nil {
			t.Fatal("expected error for id 0")
		}
	})

	t.Run("get documents keeps order and skips missing", func(t *testing.T) {
		db := openTestDB(t)
		mustUpsert(t, db, model.Document{ID: 1})
		mustUpsert(t, db, model.Document{ID: 2})
		mustUpsert(t, db, model.Document{ID: 3})

		docs, err := db.GetDocuments([]model.DocID{3, 7, 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 2 || docs[0].ID != 3 || docs[1].ID != 1 {
			t.Fatalf("GetDocuments = %v", docs)
		}
	})

	t.Run("delete removes attributes", func(t *testing.T) {
		db := openTestDB(t)
		mustUpsert(t, db, model.Document{ID: 5})
		if err := db.SetAttribute(5, "k", "v"); err != nil {
			t.Fatal(err)
		}
		if err := db.DeleteDocument(5); err != nil {
			t.Fatal(err)
		}
		if doc, _ := db.GetDocument(5); doc != nil {
			t.Error("document still present")
		}
		if _, ok, _ := db.GetAttribute(5, "k"); ok {
			t.Error("attribute survived document deletion")
		}
	})

	t.Run("all ids and next id", func(t *testing.T) {
		db := openTestDB(t)
		next, err := db.NextDocumentID()
		if err != nil || next != 1 {
			t.Fatalf("NextDocumentID on empty db = %d, %v", next, err)
		}
		mustUpsert(t, db, model.Document{ID: 9})
		mustUpsert(t, db, model.Document{ID: 2})

		ids, err := db.AllDocumentIDs()
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 2 || ids[0] != 2 || ids[1] != 9 {
			t.Errorf("AllDocumentIDs = %v", ids)
		}
		if next, _ := db.NextDocumentID(); next != 10 {
			t.Errorf("NextDocumentID = %d, want 10", next)
		}
	})

	t.Run("source paths", func(t *testing.T) {
		db := openTestDB(t)
		mustUpsert(t, db, model.Document{ID: 1, SourcePath: "a.md", ModifiedAt: time.Unix(100, 0)})
		mustUpsert(t, db, model.Document{ID: 2})

		paths, err := db.SourcePaths()
		if err != nil {
			t.Fatal(err)
		}
		if len(paths) != 1 || paths["a.md"].ID != 1 || paths["a.md"].ModifiedAt.Unix() != 100 {
			t.Errorf("SourcePaths = %v", paths)
		}
		doc, err := db.DocumentBySourcePath("a.md")
		if err != nil || doc == nil || doc.ID != 1 {
			t.Errorf("DocumentBySourcePath = %v, %v", doc, err)
		}
		if doc, _ := db.DocumentBySourcePath("b.md"); doc != nil {
			t.Errorf("expected nil for unknown path")
		}
	})
}

func TestURLToDocumentID(t *testing.T) {
	db := openTestDB(t)
	mustUpsert(t, db, model.Document{ID: 3, Slug: "hello-world"})
	mustUpsert(t, db, model.Document{ID: 4, Slug: "guides/setup"})
	mustUpsert(t, db, model.Document{ID: 5, Slug: "draft-copy", Revision: true})

	tests := []struct {
		name   string
		url    string
		want   model.DocID
		wantOK bool
	}{
		{name: "slug", url: "https://example.com/blog/hello-world/", want: 3, wantOK: true},
		{name: "nested slug", url: "https://example.com/blog/guides/setup", want: 4, wantOK: true},
		{name: "slugified form", url: "https://example.com/blog/Hello%20World/", want: 3, wantOK: true},
		{name: "post id param", url: "https://example.com/blog/?p=12", want: 12, wantOK: true},
		{name: "page id param", url: "https://example.com/blog/?page_id=8", want: 8, wantOK: true},
		{name: "invalid id param", url: "https://example.com/blog/?p=abc", wantOK: false},
		{name: "home page", url: "https://example.com/blog/", wantOK: false},
		{name: "revision never matches", url: "https://example.com/blog/draft-copy/", wantOK: false},
		{name: "unknown slug", url: "https://example.com/blog/missing/", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatal(err)
			}
			got, ok := db.URLToDocumentID(u)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("URLToDocumentID(%s) = %d, %v; want %d, %v", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, ok := db.URLToDocumentID(nil); ok {
		t.Error("nil URL should not resolve")
	}
}

func TestAttributesAndOptions(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetAttribute(1, "k"); ok || err != nil {
		t.Fatalf("absent attribute: ok=%v err=%v", ok, err)
	}
	if err := db.SetAttribute(1, "k", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAttribute(1, "k", "b"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := db.GetAttribute(1, "k"); !ok || v != "b" {
		t.Errorf("GetAttribute = %q, %v; want b", v, ok)
	}
	if err := db.SetAttribute(3, "k", "c"); err != nil {
		t.Fatal(err)
	}
	ids, err := db.DocumentsWithAttribute("k")
	if err != nil || len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("DocumentsWithAttribute = %v, %v", ids, err)
	}
	if err := db.DeleteAttribute(1, "k"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteAttribute(1, "k"); err != nil {
		t.Errorf("deleting an absent attribute: %v", err)
	}

	created, err := db.AddOption("o", "1")
	if err != nil || !created {
		t.Fatalf("AddOption = %v, %v", created, err)
	}
	created, err = db.AddOption("o", "2")
	if err != nil || created {
		t.Fatalf("second AddOption = %v, %v; want false", created, err)
	}
	if v, _, _ := db.GetOption("o"); v != "1" {
		t.Errorf("AddOption overwrote existing value: %q", v)
	}
	if err := db.SetOption("o", "3"); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := db.GetOption("o"); v != "3" {
		t.Errorf("GetOption = %q, want 3", v)
	}
	if err := db.DeleteOption("o"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetOption("o"); ok {
		t.Error("option survived delete")
	}
}

func TestOpenWithRebuild(t *testing.T) {
	site := t.TempDir()

	db, rebuilt, err := OpenWithRebuild(site)
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt {
		t.Error("fresh database reported as rebuilt")
	}
	mustUpsert(t, db, model.Document{ID: 1})
	db.Close()

	// Reopening a current schema keeps the data.
	db, rebuilt, err = OpenWithRebuild(site)
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt {
		t.Error("current schema reported as rebuilt")
	}
	if doc, _ := db.GetDocument(1); doc == nil {
		t.Error("document lost on reopen")
	}
	db.Close()

	// Replace the database with one from an older schema.
	dbPath := filepath.Join(site, DirName, "index.db")
	if err := removeDatabaseFiles(dbPath); err != nil {
		t.Fatal(err)
	}
	old, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := old.Exec("CREATE TABLE documents (id INTEGER PRIMARY KEY, type TEXT)"); err != nil {
		t.Fatal(err)
	}
	old.Close()

	db, rebuilt, err = OpenWithRebuild(site)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if !rebuilt {
		t.Error("outdated schema was not rebuilt")
	}
}

func TestAcquireLock(t *testing.T) {
	site := t.TempDir()

	lock, err := AcquireLock(site)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := AcquireLock(site); !errors.Is(err, ErrIndexLocked) {
		t.Fatalf("second AcquireLock error = %v, want ErrIndexLocked", err)
	}
	if _, _, err := OpenWithRebuild(site); !errors.Is(err, ErrIndexLocked) {
		t.Fatalf("OpenWithRebuild while locked = %v, want ErrIndexLocked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	again, err := AcquireLock(site)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	again.Release()

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil lock release: %v", err)
	}
}

func TestIDList(t *testing.T) {
	ph, args := idList(nil)
	if ph != "NULL" || args != nil {
		t.Errorf("idList(nil) = %q, %v", ph, args)
	}
	ph, args = idList([]model.DocID{4, 2, 9})
	if ph != "?, ?, ?" || len(args) != 3 || args[1] != int64(2) {
		t.Errorf("idList = %q, %v", ph, args)
	}
}
