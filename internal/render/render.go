// Package render turns "what links here" results into HTML list markup.
//
// The markup is the same shape the WordPress plugin's shortcode produced,
// so existing theme CSS keeps working:
//
//	<ul class="wp-wlh-items"><li><a href="..." title="Permalink to T" rel="bookmark">T</a></li></ul>
package render

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/model"
)

// Default markup pieces.
const (
	ListOpen  = `<ul class="wp-wlh-items">`
	ListClose = `</ul>`
)

// Renderer builds list markup for documents of one site.
type Renderer struct {
	base  *url.URL
	hooks *hooks.Hooks
}

// New creates a Renderer that builds permalinks under base. Markup is
// filtered through the List hooks of h, which may be nil.
func New(base *url.URL, h *hooks.Hooks) *Renderer {
	return &Renderer{base: base, hooks: h}
}

// Permalink returns the public address of doc. Documents without a slug are
// addressed by id ("?p=12").
func (r *Renderer) Permalink(doc *model.Document) string {
	return Permalink(r.base, doc)
}

// Permalink returns the public address of doc under base.
func Permalink(base *url.URL, doc *model.Document) string {
	u := *base
	u.RawQuery = ""
	u.Fragment = ""
	basePath := strings.TrimSuffix(u.Path, "/")
	if doc.Slug == "" {
		u.Path = basePath + "/"
		u.RawQuery = "p=" + strconv.FormatInt(int64(doc.ID), 10)
		return u.String()
	}
	u.Path = basePath + "/" + strings.Trim(doc.Slug, "/") + "/"
	return u.String()
}

// List renders the documents linking to id. No documents render as an
// empty string without running any hook.
func (r *Renderer) List(id model.DocID, docs []*model.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(r.hooks.ApplyListOpen(ListOpen, id))
	for _, doc := range docs {
		sb.WriteString(r.hooks.ApplyListItem(r.Item(doc), doc))
	}
	sb.WriteString(r.hooks.ApplyListClose(ListClose, id))
	return r.hooks.ApplyListOutput(sb.String())
}

// Item renders the unfiltered markup of one document.
func (r *Renderer) Item(doc *model.Document) string {
	title := doc.DisplayTitle()
	var sb strings.Builder
	sb.WriteString(`<li><a href="`)
	sb.WriteString(html.EscapeString(r.Permalink(doc)))
	sb.WriteString(`" title="`)
	sb.WriteString(html.EscapeString("Permalink to " + title))
	sb.WriteString(`" rel="bookmark">`)
	sb.WriteString(html.EscapeString(title))
	sb.WriteString(`</a></li>`)
	return sb.String()
}
