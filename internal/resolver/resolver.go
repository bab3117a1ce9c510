// Package resolver maps raw hyperlink targets to document identifiers.
//
// Resolution is strict and side-effect free. A reference that fails any
// check is rejected with a reason rather than an error: external and broken
// links are routine.
package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aidanlsb/wlh/internal/model"
)

// Documents is the part of the document store the resolver needs.
type Documents interface {
	// URLToDocumentID translates an internal URL into a document identifier.
	URLToDocumentID(u *url.URL) (model.DocID, bool)

	// GetDocument returns the document, or nil when it does not exist.
	GetDocument(id model.DocID) (*model.Document, error)
}

// Rejection explains why a reference did not resolve.
type Rejection string

const (
	RejectNone      Rejection = ""
	RejectMalformed Rejection = "malformed"
	RejectScheme    Rejection = "scheme"
	RejectRelative  Rejection = "relative"
	RejectExternal  Rejection = "external"
	RejectUnknown   Rejection = "unknown"
	RejectMissing   Rejection = "missing"
)

// Options configures a Resolver.
type Options struct {
	// AllowRelative resolves relative references against the base address
	// instead of rejecting them.
	AllowRelative bool
}

// Resolver resolves references against one corpus.
type Resolver struct {
	base          *url.URL
	basePath      string
	docs          Documents
	allowRelative bool
}

// New creates a Resolver for the corpus served at baseURL.
func New(baseURL string, docs Documents, opts Options) (*Resolver, error) {
	base, err := ParseBase(baseURL)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		return nil, fmt.Errorf("document store is required")
	}
	return &Resolver{
		base:          base,
		basePath:      strings.TrimSuffix(base.Path, "/"),
		docs:          docs,
		allowRelative: opts.AllowRelative,
	}, nil
}

// ParseBase parses and checks a corpus base address.
func ParseBase(baseURL string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if !isHTTPScheme(base.Scheme) || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}
	return base, nil
}

// Base returns a copy of the base address.
func (r *Resolver) Base() *url.URL {
	u := *r.base
	return &u
}

// Result is the detailed outcome of a resolution.
type Result struct {
	Raw       string
	ID        model.DocID
	Rejection Rejection
}

// OK reports whether the reference resolved to an existing document.
func (r Result) OK() bool { return r.Rejection == RejectNone && r.ID.Valid() }

// Resolve returns the document a reference points to.
func (r *Resolver) Resolve(raw string) (model.DocID, bool) {
	res := r.ResolveDetailed(raw)
	return res.ID, res.OK()
}

// ResolveDetailed resolves a reference and reports why it was rejected.
func (r *Resolver) ResolveDetailed(raw string) Result {
	res := Result{Raw: raw}

	u, rej := r.internalURL(raw)
	if rej != RejectNone {
		res.Rejection = rej
		return res
	}

	id, ok := r.docs.URLToDocumentID(u)
	if !ok || !id.Valid() {
		res.Rejection = RejectUnknown
		return res
	}

	// Revisions are copies of another document and never become targets.
	doc, err := r.docs.GetDocument(id)
	if err != nil || doc == nil || doc.Revision {
		res.Rejection = RejectMissing
		return res
	}

	res.ID = id
	return res
}

// internalURL parses raw and checks that it addresses the corpus.
func (r *Resolver) internalURL(raw string) (*url.URL, Rejection) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return nil, RejectMalformed
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, RejectMalformed
	}

	switch {
	case u.Scheme != "" && !isHTTPScheme(u.Scheme):
		return nil, RejectScheme
	case u.Scheme == "" && u.Host == "":
		if !r.allowRelative {
			return nil, RejectRelative
		}
		u = r.base.ResolveReference(u)
	case u.Scheme == "":
		// Protocol-relative (//host/path).
		u.Scheme = r.base.Scheme
	}

	if !r.sameOrigin(u) || !r.underBasePath(u.Path) {
		return nil, RejectExternal
	}
	return u, RejectNone
}

// sameOrigin compares hosts case-insensitively. http and https count as the
// same origin; explicit non-default ports must match.
func (r *Resolver) sameOrigin(u *url.URL) bool {
	if !strings.EqualFold(u.Hostname(), r.base.Hostname()) {
		return false
	}
	return effectivePort(u) == effectivePort(r.base)
}

func (r *Resolver) underBasePath(p string) bool {
	if r.basePath == "" {
		return true
	}
	return p == r.basePath || strings.HasPrefix(p, r.basePath+"/")
}

func effectivePort(u *url.URL) string {
	port := u.Port()
	switch {
	case port == "":
		return ""
	case port == "80" && strings.EqualFold(u.Scheme, "http"):
		return ""
	case port == "443" && strings.EqualFold(u.Scheme, "https"):
		return ""
	}
	return port
}

func isHTTPScheme(s string) bool {
	return strings.EqualFold(s, "http") || strings.EqualFold(s, "https")
}

// RelativePath returns the path of u relative to the base path, without
// leading or trailing slashes. Document stores use it to match permalinks.
func RelativePath(base, u *url.URL) string {
	p := u.Path
	basePath := strings.TrimSuffix(base.Path, "/")
	if basePath != "" {
		p = strings.TrimPrefix(p, basePath)
	}
	return strings.Trim(p, "/")
}
