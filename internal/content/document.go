// Package content loads documents from a content directory.
//
// Each file is one document. An optional YAML frontmatter block carries the
// document's metadata; the rest of the file is its body:
//
//	---
//	id: 12
//	title: Getting started
//	type: page
//	status: publish
//	---
//	<p>See the <a href="https://example.com/faq">FAQ</a>.</p>
package content

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/slugs"
)

// Frontmatter is the metadata block of a content file.
type Frontmatter struct {
	ID       model.DocID `yaml:"id"`
	Type     string      `yaml:"type"`
	Status   string      `yaml:"status"`
	Title    string      `yaml:"title"`
	Slug     string      `yaml:"slug"`
	Format   string      `yaml:"format"`
	Revision bool        `yaml:"revision"`
}

// ParseOptions supplies defaults for fields a file does not set.
type ParseOptions struct {
	DefaultType   string
	DefaultStatus string
	// DefaultFormat applies to files whose extension does not imply one.
	DefaultFormat model.Format
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.DefaultType == "" {
		o.DefaultType = "post"
	}
	if o.DefaultStatus == "" {
		o.DefaultStatus = model.StatusPublished
	}
	if o.DefaultFormat == "" {
		o.DefaultFormat = model.FormatHTML
	}
	return o
}

// extFormats maps content file extensions to body formats. Files with other
// extensions are not content.
var extFormats = map[string]model.Format{
	".md":       model.FormatMarkdown,
	".markdown": model.FormatMarkdown,
	".html":     model.FormatHTML,
	".htm":      model.FormatHTML,
	".txt":      "",
}

// IsContentFile reports whether name has a content file extension.
func IsContentFile(name string) bool {
	_, ok := extFormats[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FrontmatterBounds returns the index of the closing '---' line. It only
// detects frontmatter when the first line is '---'. ok is false when there
// is no frontmatter; an unclosed block reports ok with end == -1.
func FrontmatterBounds(lines []string) (end int, ok bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return -1, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i, true
		}
	}
	return -1, true
}

// SplitFrontmatter separates the frontmatter from the body. Content without
// a closed frontmatter block is all body.
func SplitFrontmatter(content string) (*Frontmatter, string, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	lines := strings.Split(content, "\n")

	end, ok := FrontmatterBounds(lines)
	if !ok || end == -1 {
		return &Frontmatter{}, content, nil
	}

	fm := &Frontmatter{}
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), fm); err != nil {
		return nil, "", fmt.Errorf("failed to parse frontmatter as YAML: %w", err)
	}
	return fm, strings.Join(lines[end+1:], "\n"), nil
}

// Parse builds a document from the file at relPath (slash-separated,
// relative to the content directory). The id is zero unless the
// frontmatter sets one.
func Parse(relPath, content string, modTime time.Time, opts ParseOptions) (*model.Document, error) {
	opts = opts.withDefaults()
	relPath = filepath.ToSlash(relPath)

	fm, body, err := SplitFrontmatter(content)
	if err != nil {
		return nil, err
	}
	if fm.ID < 0 {
		return nil, fmt.Errorf("invalid id %d", fm.ID)
	}

	doc := &model.Document{
		ID:         fm.ID,
		Type:       firstNonEmpty(fm.Type, opts.DefaultType),
		Status:     firstNonEmpty(fm.Status, opts.DefaultStatus),
		Title:      fm.Title,
		Body:       body,
		Revision:   fm.Revision,
		SourcePath: relPath,
		ModifiedAt: modTime.Truncate(time.Second),
	}

	switch model.Format(strings.ToLower(fm.Format)) {
	case model.FormatHTML:
		doc.Format = model.FormatHTML
	case model.FormatMarkdown, "md":
		doc.Format = model.FormatMarkdown
	case "":
		doc.Format = formatForPath(relPath, opts.DefaultFormat)
	default:
		return nil, fmt.Errorf("unknown format %q", fm.Format)
	}

	if fm.Slug != "" {
		doc.Slug = slugs.PathSlug(fm.Slug)
	} else {
		doc.Slug = slugs.PathSlug(relPath)
	}
	if doc.Title == "" {
		base := path.Base(relPath)
		doc.Title = strings.TrimSuffix(base, path.Ext(base))
	}
	return doc, nil
}

func formatForPath(relPath string, fallback model.Format) model.Format {
	if f := extFormats[strings.ToLower(path.Ext(relPath))]; f != "" {
		return f
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
