package render

import (
	"net/url"
	"strings"
	"testing"

	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/model"
)

func mustBase(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestPermalink(t *testing.T) {
	tests := []struct {
		base string
		doc  model.Document
		want string
	}{
		{"https://example.com", model.Document{ID: 2, Slug: "hello"}, "https://example.com/hello/"},
		{"https://example.com/", model.Document{ID: 2, Slug: "guides/start"}, "https://example.com/guides/start/"},
		{"https://example.com/blog", model.Document{ID: 2, Slug: "hello"}, "https://example.com/blog/hello/"},
		{"https://example.com", model.Document{ID: 12}, "https://example.com/?p=12"},
	}
	for _, tt := range tests {
		if got := Permalink(mustBase(t, tt.base), &tt.doc); got != tt.want {
			t.Errorf("Permalink(%s, %q) = %q, want %q", tt.base, tt.doc.Slug, got, tt.want)
		}
	}
}

func TestList(t *testing.T) {
	docs := []*model.Document{
		{ID: 2, Title: "First", Slug: "first"},
		{ID: 3, Title: `Tom & "Jerry"`, Slug: "tom"},
	}

	t.Run("default markup", func(t *testing.T) {
		r := New(mustBase(t, "https://example.com"), nil)
		got := r.List(1, docs)
		want := `<ul class="wp-wlh-items">` +
			`<li><a href="https://example.com/first/" title="Permalink to First" rel="bookmark">First</a></li>` +
			`<li><a href="https://example.com/tom/" title="Permalink to Tom &amp; &#34;Jerry&#34;" rel="bookmark">Tom &amp; &#34;Jerry&#34;</a></li>` +
			`</ul>`
		if got != want {
			t.Errorf("List() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		called := false
		r := New(mustBase(t, "https://example.com"), &hooks.Hooks{
			ListOutput: func(s string) string { called = true; return s },
		})
		if got := r.List(1, nil); got != "" {
			t.Errorf("List() = %q, want empty", got)
		}
		if called {
			t.Error("Output hook ran for an empty list")
		}
	})

	t.Run("hooks", func(t *testing.T) {
		var openID, closeID model.DocID
		r := New(mustBase(t, "https://example.com"), &hooks.Hooks{
			ListOpen: func(m string, id model.DocID) string {
				openID = id
				return `<ol>`
			},
			ListItem: func(m string, doc *model.Document) string {
				return "<li>" + doc.ID.String() + "</li>"
			},
			ListClose: func(m string, id model.DocID) string {
				closeID = id
				return `</ol>`
			},
			ListOutput: func(m string) string { return `<nav>` + m + `</nav>` },
		})

		got := r.List(9, docs)
		if got != `<nav><ol><li>2</li><li>3</li></ol></nav>` {
			t.Errorf("List() = %q", got)
		}
		if openID != 9 || closeID != 9 {
			t.Errorf("open/close ids = %d/%d, want 9", openID, closeID)
		}
	})

	t.Run("quotes are escaped in attributes", func(t *testing.T) {
		r := New(mustBase(t, "https://example.com"), nil)
		got := r.Item(&model.Document{ID: 5, Title: `it's "x" <b>`, Slug: "x"})
		want := `title="Permalink to it&#39;s &#34;x&#34; &lt;b&gt;"`
		if !strings.Contains(got, want) {
			t.Errorf("Item() = %q, want it to contain %q", got, want)
		}
	})

	t.Run("untitled document", func(t *testing.T) {
		r := New(mustBase(t, "https://example.com"), nil)
		got := r.Item(&model.Document{ID: 4})
		if !strings.Contains(got, ">#4</a>") || !strings.Contains(got, `href="https://example.com/?p=4"`) {
			t.Errorf("Item() = %q", got)
		}
	})
}
