package ui

import (
	"fmt"
	"strings"
)

// ListItem is one document in a rendered list.
type ListItem struct {
	ID    int64
	Title string
	URL   string
}

// DocumentList writes items as a markdown list under an H2 heading. Each
// entry ends with its id in a code span. An empty list gets a placeholder.
func DocumentList(heading string, items []ListItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", escapeMarkdown(heading))
	if len(items) == 0 {
		sb.WriteString("_nothing_\n")
		return sb.String()
	}
	for _, it := range items {
		entry := escapeMarkdown(it.Title)
		if it.URL != "" {
			entry = "[" + entry + "](" + it.URL + ")"
		}
		fmt.Fprintf(&sb, "- %s `#%d`\n", entry, it.ID)
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
