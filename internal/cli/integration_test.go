//go:build integration

package cli_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/aidanlsb/wlh/internal/testutil"
)

func page(id, slug, title, body string) string {
	return "---\nid: " + id + "\nslug: " + slug + "\ntitle: " + title + "\n---\n" + body + "\n"
}

// TestIntegration_LinkLifecycle syncs, drains, edits and removes linked documents.
func TestIntegration_LinkLifecycle(t *testing.T) {
	s := testutil.NewCLISite(t).Init("https://example.com")

	s.WriteContent("a.html", page("1", "a", "A", `<a href="https://example.com/c/">c</a>`))
	s.WriteContent("b.html", page("2", "b", "B", `<a href="https://example.com/c/">c</a> <a href="https://example.com/?p=1">a</a>`))
	s.WriteContent("c.html", page("3", "c", "C", "<p>target</p>"))

	result := s.RunCLI("sync", "--drain")
	result.MustSucceed(t)
	if got := len(result.DataList("saved")); got != 3 {
		t.Fatalf("saved %d documents, want 3", got)
	}

	result = s.RunCLI("here", "3")
	result.MustSucceed(t)
	assertIDs(t, "here 3", result.DataIDs("ids"), 1, 2)
	if html := result.DataString("html"); !strings.HasPrefix(html, `<ul class="wp-wlh-items">`) {
		t.Errorf("html = %q", html)
	}

	result = s.RunCLI("here", "1")
	result.MustSucceed(t)
	assertIDs(t, "here 1", result.DataIDs("ids"), 2)

	// Drop the link from b to c.
	s.WriteContent("b.html", page("2", "b", "B", `<a href="https://example.com/?p=1">a</a>`))
	s.RunCLI("sync").MustSucceed(t)

	result = s.RunCLI("queue")
	result.MustSucceed(t)
	assertIDs(t, "queue", result.DataIDs("pending"), 2)

	// Links do not change until the queue is drained.
	result = s.RunCLI("here", "3")
	assertIDs(t, "here 3 before drain", result.DataIDs("ids"), 1, 2)

	s.RunCLI("drain").MustSucceed(t)
	result = s.RunCLI("here", "3")
	assertIDs(t, "here 3 after drain", result.DataIDs("ids"), 1)

	s.RemoveContent("a.html")
	result = s.RunCLI("sync")
	result.MustSucceed(t)
	assertIDs(t, "deleted", result.DataIDs("deleted"), 1)

	result = s.RunCLI("here", "3")
	assertIDs(t, "here 3 after removal", result.DataIDs("ids"))

	s.RunCLI("check").MustSucceed(t)
}

func TestIntegration_NotInstalled(t *testing.T) {
	s := testutil.NewCLISite(t).Init("https://example.com")
	s.RunCLI("uninstall").MustSucceed(t)

	s.RunCLI("drain").MustFail(t, "NOT_INSTALLED")
	s.RunCLI("queue").MustFail(t, "NOT_INSTALLED")

	s.RunCLI("init").MustSucceed(t)
	s.RunCLI("queue").MustSucceed(t)
}

func TestIntegration_InvalidInput(t *testing.T) {
	s := testutil.NewCLISite(t).Init("https://example.com")

	s.RunCLI("here", "abc").MustFail(t, "INVALID_INPUT")
	s.RunCLI("here", "42").MustFail(t, "DOCUMENT_NOT_FOUND")
	s.RunCLI("save", "0").MustFail(t, "INVALID_INPUT")
	s.RunCLI("check", "--drain").MustFailWithMessage(t, "--repair")
}

func TestIntegration_SyncReportsBadFiles(t *testing.T) {
	s := testutil.NewCLISite(t).Init("https://example.com")

	s.WriteContent("one.html", page("5", "one", "One", "<p>1</p>"))
	s.WriteContent("two.html", page("5", "two", "Two", "<p>2</p>"))

	result := s.RunCLI("sync")
	result.MustSucceed(t)
	if !result.HasWarning("SYNC_ERRORS") {
		t.Fatalf("expected SYNC_ERRORS warning, got %+v", result.Warnings)
	}
}

func assertIDs(t *testing.T, what string, got []int64, want ...int64) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}
