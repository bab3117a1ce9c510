package ui

import (
	"errors"
	"testing"
)

func TestTableAlignsColumns(t *testing.T) {
	tbl := NewTable(3)
	tbl.AddRow("5", "missing inbound", "7")
	tbl.AddRow("12", "ok", "3", "dropped")

	want := "5   missing inbound  7\n" +
		"12  ok               3\n"
	if got := tbl.String(); got != want {
		t.Fatalf("String() =\n%q\nwant\n%q", got, want)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d", tbl.Len())
	}
}

func TestTableTrailingBlankCells(t *testing.T) {
	tbl := NewTable(3)
	tbl.AddRow("a", "b", "c")
	tbl.AddRow("long")

	want := "a     b  c\n" +
		"long\n"
	if got := tbl.String(); got != want {
		t.Fatalf("String() =\n%q\nwant\n%q", got, want)
	}
}

func TestTableHeaderWithoutRows(t *testing.T) {
	tbl := NewTable(2).Header("SOURCE", "TARGET")
	if got := tbl.String(); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
	tbl.AddRow("1", "2")
	if got := tbl.String(); got == "" {
		t.Fatal("expected header and row")
	}
}

func TestRenderListWithoutTerminal(t *testing.T) {
	d := &DisplayContext{TermWidth: 80}
	items := []ListItem{{ID: 1, Title: "One"}}
	got, err := d.RenderList("Linking to", items)
	if err != nil {
		t.Fatal(err)
	}
	if got != DocumentList("Linking to", items) {
		t.Fatalf("expected plain markdown, got %q", got)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 documents"},
		{1, "1 document"},
		{3, "3 documents"},
	}
	for _, tt := range tests {
		if got := Count(tt.n, "document", "documents"); got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestSpinQuiet(t *testing.T) {
	called := false
	errBoom := errors.New("boom")
	err := Spin("working", true, func() error {
		called = true
		return errBoom
	})
	if !called || !errors.Is(err, errBoom) {
		t.Fatalf("Spin returned %v, called=%v", err, called)
	}
}
