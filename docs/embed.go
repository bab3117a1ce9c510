// Package docs bundles the long-form guide shown by 'wlh docs'.
package docs

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed guide
var FS embed.FS

// Topic is one guide page.
type Topic struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Topics lists the guide pages, sorted by file name.
func Topics() ([]Topic, error) {
	entries, err := fs.ReadDir(FS, "guide")
	if err != nil {
		return nil, err
	}
	var out []Topic
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		body, err := fs.ReadFile(FS, path.Join("guide", e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Topic{Name: topicName(e.Name()), Title: firstHeading(string(body))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the Markdown source of a topic. Names are matched without
// their numeric prefix, so "config" finds "02-config.md".
func Read(name string) (string, bool) {
	entries, err := fs.ReadDir(FS, "guide")
	if err != nil {
		return "", false
	}
	want := strings.ToLower(strings.TrimSuffix(name, ".md"))
	for _, e := range entries {
		if topicName(e.Name()) != want {
			continue
		}
		body, err := fs.ReadFile(FS, path.Join("guide", e.Name()))
		if err != nil {
			return "", false
		}
		return string(body), true
	}
	return "", false
}

func topicName(file string) string {
	name := strings.TrimSuffix(file, ".md")
	if i := strings.IndexByte(name, '-'); i > 0 && strings.Trim(name[:i], "0123456789") == "" {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

func firstHeading(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
