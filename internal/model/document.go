// Package model defines the shared types of the link index.
package model

import (
	"strconv"
	"strings"
	"time"
)

// DocID identifies a document in the corpus.
// Identifiers <= 0 are invalid and never stored.
type DocID int64

// Valid reports whether the identifier can refer to a document.
func (id DocID) Valid() bool { return id > 0 }

func (id DocID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseDocID parses a single identifier. Surrounding whitespace is ignored.
func ParseDocID(s string) (DocID, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return DocID(n), true
}

// Status values a document can carry. Only StatusPublished participates in
// the link graph.
const (
	StatusPublished = "publish"
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPrivate   = "private"
	StatusTrash     = "trash"
)

// Format describes how a document body is marked up.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Document is a unit of content owned by the document store.
// The link index treats it as read-only input.
type Document struct {
	// ID uniquely identifies this document.
	ID DocID `json:"id"`

	// Type is the document type (e.g., "post", "page").
	Type string `json:"type"`

	// Status is the publication status (e.g., "publish", "draft").
	Status string `json:"status"`

	Title string `json:"title,omitempty"`

	// Slug is the permalink path of the document relative to the site base,
	// without leading or trailing slashes (e.g., "guides/getting-started").
	Slug string `json:"slug,omitempty"`

	// Body holds the markup containing embedded hyperlinks.
	Body string `json:"-"`

	// Format is the markup of Body. Empty means FormatHTML.
	Format Format `json:"format,omitempty"`

	// Revision marks autosave/revision copies of another document.
	// Revisions never participate in the link graph.
	Revision bool `json:"revision,omitempty"`

	// SourcePath is the content file the document was loaded from, relative
	// to the content directory. Empty for documents created by other means.
	SourcePath string `json:"source_path,omitempty"`

	// ModifiedAt is the last time the document changed.
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// IsPublished reports whether the document is publicly published.
func (d *Document) IsPublished() bool {
	return d != nil && d.Status == StatusPublished
}

// DocumentType returns the document's type.
func (d *Document) DocumentType() string {
	if d == nil {
		return ""
	}
	return d.Type
}

// BodyFormat returns the body format, defaulting to HTML.
func (d *Document) BodyFormat() Format {
	if d == nil || d.Format == "" {
		return FormatHTML
	}
	return d.Format
}

// DisplayTitle returns the title, falling back to the slug and then the ID.
func (d *Document) DisplayTitle() string {
	switch {
	case d.Title != "":
		return d.Title
	case d.Slug != "":
		return d.Slug
	default:
		return "#" + d.ID.String()
	}
}
