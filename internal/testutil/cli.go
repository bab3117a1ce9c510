package testutil

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// CLIResult is the decoded --json envelope of one wlh invocation.
type CLIResult struct {
	OK       bool                   `json:"ok"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Error    *CLIError              `json:"error,omitempty"`
	Warnings []CLIWarning           `json:"warnings,omitempty"`
	Meta     *CLIMeta               `json:"meta,omitempty"`

	RawJSON  string `json:"-"`
	Stderr   string `json:"-"`
	ExitCode int    `json:"-"`
}

type CLIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

type CLIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CLIMeta struct {
	Count  int   `json:"count,omitempty"`
	TookMs int64 `json:"took_ms,omitempty"`
}

// CLISite is a site directory on disk driven through the wlh binary.
type CLISite struct {
	Path string
	t    *testing.T
}

// NewCLISite creates an empty site directory. Run Init before other
// commands.
func NewCLISite(t *testing.T) *CLISite {
	t.Helper()
	return &CLISite{Path: t.TempDir(), t: t}
}

// Init runs 'wlh init' with baseURL and fails the test on error.
func (s *CLISite) Init(baseURL string) *CLISite {
	s.t.Helper()
	s.RunCLI("init", s.Path, "--base-url", baseURL).MustSucceed(s.t)
	return s
}

// WriteContent writes a file under the content directory, creating parent
// directories.
func (s *CLISite) WriteContent(relPath, content string) {
	s.t.Helper()
	full := s.contentPath(relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		s.t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		s.t.Fatalf("write %s: %v", relPath, err)
	}
}

func (s *CLISite) RemoveContent(relPath string) {
	s.t.Helper()
	if err := os.Remove(s.contentPath(relPath)); err != nil {
		s.t.Fatalf("remove %s: %v", relPath, err)
	}
}

func (s *CLISite) contentPath(relPath string) string {
	return filepath.Join(s.Path, "content", filepath.FromSlash(relPath))
}

// RunCLI runs wlh with --site and --json against the site.
func (s *CLISite) RunCLI(args ...string) *CLIResult {
	s.t.Helper()

	cmd := exec.Command(BuildCLI(s.t), append([]string{"--site", s.Path, "--json"}, args...)...)
	// Logs go to stderr; stdout carries only the envelope.
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, runErr := cmd.Output()

	result := &CLIResult{}
	if err := json.Unmarshal(out, result); err != nil {
		result = &CLIResult{Error: &CLIError{
			Code:    "PARSE_ERROR",
			Message: "failed to parse JSON output: " + err.Error(),
			Details: map[string]interface{}{"stderr": stderr.String()},
		}}
	}
	result.RawJSON = string(out)
	result.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case runErr != nil:
		result.ExitCode = -1
	}
	return result
}

func (r *CLIResult) describe() string {
	if r.Error == nil {
		return "no error"
	}
	return r.Error.Code + ": " + r.Error.Message
}

// MustSucceed fails the test unless the command reported ok.
func (r *CLIResult) MustSucceed(t *testing.T) *CLIResult {
	t.Helper()
	if !r.OK {
		t.Fatalf("expected success, got %s\nstdout: %s\nstderr: %s", r.describe(), r.RawJSON, r.Stderr)
	}
	return r
}

// MustFail fails the test unless the command failed with code.
func (r *CLIResult) MustFail(t *testing.T, code string) *CLIResult {
	t.Helper()
	if r.OK || r.Error == nil {
		t.Fatalf("expected failure %s, got ok=%v\nstdout: %s", code, r.OK, r.RawJSON)
	}
	if r.Error.Code != code {
		t.Fatalf("expected failure %s, got %s\nstdout: %s", code, r.describe(), r.RawJSON)
	}
	return r
}

// MustFailWithMessage fails the test unless the command failed with msg in
// its message or suggestion.
func (r *CLIResult) MustFailWithMessage(t *testing.T, msg string) *CLIResult {
	t.Helper()
	if r.OK || r.Error == nil {
		t.Fatalf("expected failure, got ok=%v\nstdout: %s", r.OK, r.RawJSON)
	}
	if !strings.Contains(r.Error.Message, msg) && !strings.Contains(r.Error.Suggestion, msg) {
		t.Errorf("expected error to mention %q, got %s (suggestion: %s)", msg, r.Error.Message, r.Error.Suggestion)
	}
	return r
}

func (r *CLIResult) DataList(key string) []interface{} {
	list, _ := r.Data[key].([]interface{})
	return list
}

func (r *CLIResult) DataString(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// DataIDs reads a list of numeric document ids. Non-numeric entries are
// skipped.
func (r *CLIResult) DataIDs(key string) []int64 {
	var ids []int64
	for _, v := range r.DataList(key) {
		if f, ok := v.(float64); ok {
			ids = append(ids, int64(f))
		}
	}
	return ids
}

// HasWarning reports whether the response carries a warning with code.
func (r *CLIResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
