// Package slugs provides the permalink slug helpers shared by the content
// loader and the document store.
//
// A slug is the path of a document relative to the site base address,
// "/"-separated, without leading or trailing slashes. Each component is built
// with gosimple/slug.
package slugs

import (
	"path"
	"strings"

	goslug "github.com/gosimple/slug"
)

// contentExtensions are stripped from the last path component.
var contentExtensions = []string{".md", ".markdown", ".html", ".htm", ".txt"}

// ComponentSlug converts a string to a URL-safe slug for one path component.
func ComponentSlug(s string) string {
	s = trimContentExt(s)
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
	}
	return slugged
}

// PathSlug slugifies each component of a path and drops empty components,
// so "/Guides//Getting Started.md/" becomes "guides/getting-started".
func PathSlug(p string) string {
	parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	out := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if s := ComponentSlug(part); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// Normalize cleans a permalink path without changing its components:
// trims slashes and collapses "." and "..".
func Normalize(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	return strings.Trim(cleaned, "/")
}

func trimContentExt(s string) string {
	lower := strings.ToLower(s)
	for _, ext := range contentExtensions {
		if strings.HasSuffix(lower, ext) {
			return s[:len(s)-len(ext)]
		}
	}
	return s
}
