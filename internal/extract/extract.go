// Package extract finds hyperlink targets in document bodies.
//
// The extractor knows nothing about the corpus: it returns the raw href
// values of anchor elements, in document order, duplicates included.
package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/aidanlsb/wlh/internal/model"
)

// Options configures an Extractor.
type Options struct {
	// Linkify turns bare URLs in Markdown bodies into links.
	Linkify bool
}

// Extractor extracts raw link targets from HTML and Markdown bodies.
type Extractor struct {
	md goldmark.Markdown
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	var exts []goldmark.Extender
	if opts.Linkify {
		exts = append(exts, extension.Linkify)
	}
	return &Extractor{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			// Raw HTML must survive conversion so inline anchors are found.
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Extract returns the href values of all anchors in body.
// It never fails: unparseable input yields whatever anchors could be read,
// possibly none.
func (e *Extractor) Extract(body string, format model.Format) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if format == model.FormatMarkdown {
		var buf bytes.Buffer
		if err := e.md.Convert([]byte(body), &buf); err != nil {
			return nil
		}
		body = buf.String()
	}
	return HTMLLinks(body)
}

// HTMLLinks tokenizes an HTML fragment and collects the href attribute of
// every <a> element that has one.
func HTMLLinks(body string) []string {
	var links []string
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; both end the scan.
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr || string(name) != "a" {
				continue
			}
			if href, ok := hrefAttr(z); ok {
				links = append(links, href)
			}
		}
	}
}

// hrefAttr returns the first href attribute of the current tag.
func hrefAttr(z *html.Tokenizer) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}
