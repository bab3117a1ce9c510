package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = "  "

// Table aligns rows of cells on spaces, without borders. Cell widths are
// measured on rendered text, so styled cells line up.
type Table struct {
	header []string
	rows   [][]string
	widths []int
}

// NewTable creates a table of cols columns.
func NewTable(cols int) *Table {
	return &Table{widths: make([]int, cols)}
}

// Header sets the header row, rendered bold above the rows.
func (t *Table) Header(cells ...string) *Table {
	t.header = make([]string, len(t.widths))
	for i := range t.header {
		if i < len(cells) {
			t.header[i] = Bold.Render(cells[i])
		}
	}
	t.measure(t.header)
	return t
}

// AddRow adds a row. Extra cells are dropped; missing cells are blank.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.widths))
	copy(row, cells)
	t.measure(row)
	t.rows = append(t.rows, row)
}

func (t *Table) measure(row []string) {
	for i, cell := range row {
		t.widths[i] = max(t.widths[i], lipgloss.Width(cell))
	}
}

// Len returns the number of rows, not counting the header.
func (t *Table) Len() int { return len(t.rows) }

// String renders the table. A table without rows renders nothing, even
// with a header.
func (t *Table) String() string {
	if len(t.rows) == 0 {
		return ""
	}
	var sb strings.Builder
	if t.header != nil {
		t.writeRow(&sb, t.header)
	}
	for _, row := range t.rows {
		t.writeRow(&sb, row)
	}
	return sb.String()
}

func (t *Table) writeRow(sb *strings.Builder, row []string) {
	last := len(row) - 1
	for last > 0 && row[last] == "" {
		last--
	}
	for i := 0; i <= last; i++ {
		if i > 0 {
			sb.WriteString(columnGap)
		}
		sb.WriteString(row[i])
		if i < last {
			sb.WriteString(strings.Repeat(" ", t.widths[i]-lipgloss.Width(row[i])))
		}
	}
	sb.WriteByte('\n')
}
