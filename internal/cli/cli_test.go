package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aidanlsb/wlh/internal/config"
	"github.com/aidanlsb/wlh/internal/logger"
)

var captureStdoutMu sync.Mutex

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	captureStdoutMu.Lock()
	defer captureStdoutMu.Unlock()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w

	outputCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		var buf bytes.Buffer
		_, copyErr := io.Copy(&buf, r)
		_ = r.Close()
		if copyErr != nil {
			errCh <- copyErr
			return
		}
		outputCh <- buf.String()
	}()

	fn()

	os.Stdout = orig
	_ = w.Close()
	select {
	case err := <-errCh:
		t.Fatalf("io.Copy: %v", err)
		return ""
	case output := <-outputCh:
		return output
	}
}

type testResponse struct {
	OK       bool                   `json:"ok"`
	Data     map[string]interface{} `json:"data"`
	Error    *ErrorInfo             `json:"error"`
	Warnings []Warning              `json:"warnings"`
}

func decodeResponse(t *testing.T, out string) testResponse {
	t.Helper()
	var resp testResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON output, got %v; out=%s", err, out)
	}
	return resp
}

// useSite points the package globals at sitePath for one test.
func useSite(t *testing.T, sitePath string) {
	t.Helper()
	prev := struct {
		json     bool
		site     string
		resolved string
		cfg      *config.SiteConfig
		log      *logger.Logger
	}{jsonOutput, sitePathFlag, resolvedSitePath, cfg, log}
	t.Cleanup(func() {
		jsonOutput = prev.json
		sitePathFlag = prev.site
		resolvedSitePath = prev.resolved
		cfg = prev.cfg
		log = prev.log
	})

	loaded, err := config.Load(sitePath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	jsonOutput = true
	resolvedSitePath = sitePath
	cfg = loaded
	log = logger.Nop()
}

func initSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	prevJSON, prevBase := jsonOutput, initBaseURL
	t.Cleanup(func() {
		jsonOutput = prevJSON
		initBaseURL = prevBase
	})
	jsonOutput = true
	initBaseURL = "https://example.com"

	out := captureStdout(t, func() {
		if err := runInit(initCmd, []string{dir}); err != nil {
			t.Fatalf("runInit: %v", err)
		}
	})
	resp := decodeResponse(t, out)
	if !resp.OK {
		t.Fatalf("init failed: %s", out)
	}
	if resp.Data["config_created"] != true {
		t.Errorf("config_created = %v, want true", resp.Data["config_created"])
	}
	return dir
}

func writeContent(t *testing.T, sitePath, name, body string) {
	t.Helper()
	p := filepath.Join(sitePath, config.DefaultContentDir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "single", args: []string{"12"}, want: "12"},
		{name: "several", args: []string{"3", "1"}, want: "3, 1"},
		{name: "comma list", args: []string{"4,5", "6"}, want: "4, 5, 6"},
		{name: "trailing comma", args: []string{"7,"}, want: "7"},
		{name: "zero", args: []string{"0"}, wantErr: true},
		{name: "negative", args: []string{"-2"}, wantErr: true},
		{name: "word", args: []string{"abc"}, wantErr: true},
		{name: "empty", args: []string{","}, wantErr: true},
		{name: "none", args: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := parseIDs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseIDs(%v) = %v, want error", tt.args, ids)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseIDs(%v): %v", tt.args, err)
			}
			if got := printIDs(ids); got != tt.want {
				t.Errorf("parseIDs(%v) = %s, want %s", tt.args, got, tt.want)
			}
		})
	}
}

func TestEnsureGitignore(t *testing.T) {
	t.Run("creates", func(t *testing.T) {
		dir := t.TempDir()
		status, err := ensureGitignore(dir)
		if err != nil {
			t.Fatal(err)
		}
		if status != "created" {
			t.Errorf("status = %q, want created", status)
		}
		data, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
		if !strings.Contains(string(data), ".wlh/\n") {
			t.Errorf(".gitignore = %q, missing .wlh/", data)
		}

		status, err = ensureGitignore(dir)
		if err != nil {
			t.Fatal(err)
		}
		if status != "unchanged" {
			t.Errorf("second call status = %q, want unchanged", status)
		}
	})

	t.Run("appends to existing file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".gitignore")
		if err := os.WriteFile(path, []byte("node_modules/\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		status, err := ensureGitignore(dir)
		if err != nil {
			t.Fatal(err)
		}
		if status != "updated" {
			t.Errorf("status = %q, want updated", status)
		}
		data, _ := os.ReadFile(path)
		if !strings.HasPrefix(string(data), "node_modules/\n") {
			t.Errorf("existing entries lost: %q", data)
		}
	})
}

func TestResolveSitePath(t *testing.T) {
	prevFlag := sitePathFlag
	t.Cleanup(func() { sitePathFlag = prevFlag })

	site := t.TempDir()
	if err := os.WriteFile(filepath.Join(site, config.FileName), []byte("base_url = \"https://example.com\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("flag", func(t *testing.T) {
		sitePathFlag = site
		got, err := resolveSitePath()
		if err != nil {
			t.Fatal(err)
		}
		if got != site {
			t.Errorf("resolveSitePath() = %q, want %q", got, site)
		}
	})

	t.Run("flag pointing nowhere", func(t *testing.T) {
		sitePathFlag = filepath.Join(site, "missing")
		if _, err := resolveSitePath(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("environment", func(t *testing.T) {
		sitePathFlag = ""
		t.Setenv(siteEnv, site)
		got, err := resolveSitePath()
		if err != nil {
			t.Fatal(err)
		}
		if got != site {
			t.Errorf("resolveSitePath() = %q, want %q", got, site)
		}
	})
}

func TestNormalizeFlagName(t *testing.T) {
	if got := normalizeFlagName(nil, "base_url"); got != "base-url" {
		t.Errorf("normalizeFlagName(base_url) = %q", got)
	}
	if got := normalizeFlagName(nil, "json"); got != "json" {
		t.Errorf("normalizeFlagName(json) = %q", got)
	}
}

func TestInitRejectsMissingBaseURL(t *testing.T) {
	prevJSON, prevBase := jsonOutput, initBaseURL
	t.Cleanup(func() {
		jsonOutput = prevJSON
		initBaseURL = prevBase
	})
	jsonOutput = true
	initBaseURL = ""

	dir := t.TempDir()
	var runErr error
	out := captureStdout(t, func() {
		runErr = runInit(initCmd, []string{dir})
	})
	if runErr == nil {
		t.Fatal("expected error")
	}
	resp := decodeResponse(t, out)
	if resp.OK || resp.Error == nil || resp.Error.Code != ErrMissingArgument {
		t.Fatalf("unexpected response: %s", out)
	}
	if _, err := os.Stat(config.Path(dir)); !os.IsNotExist(err) {
		t.Errorf("config was written without a base url")
	}
}

func TestSyncDrainHere(t *testing.T) {
	sitePath := initSite(t)
	useSite(t, sitePath)

	writeContent(t, sitePath, "alpha.html", "---\nid: 1\nslug: alpha\ntitle: Alpha\n---\n<p>See <a href=\"https://example.com/beta/\">beta</a>.</p>\n")
	writeContent(t, sitePath, "beta.html", "---\nid: 2\nslug: beta\ntitle: Beta\n---\n<p>Nothing here.</p>\n")

	prevDrain, prevForce := syncDrain, syncForce
	t.Cleanup(func() { syncDrain, syncForce = prevDrain, prevForce })
	syncDrain, syncForce = true, false

	out := captureStdout(t, func() {
		if err := runSync(syncCmd, nil); err != nil {
			t.Fatalf("runSync: %v", err)
		}
	})
	resp := decodeResponse(t, out)
	if !resp.OK {
		t.Fatalf("sync failed: %s", out)
	}
	if saved, _ := resp.Data["saved"].([]interface{}); len(saved) != 2 {
		t.Errorf("saved = %v, want 2 documents", resp.Data["saved"])
	}
	if resp.Data["drain"] == nil {
		t.Errorf("expected drain report: %s", out)
	}

	out = captureStdout(t, func() {
		if err := hereCmd.RunE(hereCmd, []string{"2"}); err != nil {
			t.Fatalf("here: %v", err)
		}
	})
	resp = decodeResponse(t, out)
	ids, _ := resp.Data["ids"].([]interface{})
	if len(ids) != 1 || ids[0] != float64(1) {
		t.Fatalf("linking here = %v, want [1]", resp.Data["ids"])
	}
	html, _ := resp.Data["html"].(string)
	if !strings.Contains(html, `href="https://example.com/alpha/"`) {
		t.Errorf("html = %q, missing permalink to alpha", html)
	}

	out = captureStdout(t, func() {
		if err := toCmd.RunE(toCmd, []string{"1"}); err != nil {
			t.Fatalf("to: %v", err)
		}
	})
	resp = decodeResponse(t, out)
	if ids, _ := resp.Data["ids"].([]interface{}); len(ids) != 1 || ids[0] != float64(2) {
		t.Fatalf("linking to = %v, want [2]", resp.Data["ids"])
	}

	out = captureStdout(t, func() {
		if err := runCheck(checkCmd, nil); err != nil {
			t.Fatalf("check: %v", err)
		}
	})
	if resp = decodeResponse(t, out); !resp.OK {
		t.Fatalf("check reported problems: %s", out)
	}
}

func TestDeleteRemovesInboundLinks(t *testing.T) {
	sitePath := initSite(t)
	useSite(t, sitePath)

	writeContent(t, sitePath, "a.html", "---\nid: 1\nslug: a\n---\n<a href=\"https://example.com/b/\">b</a>\n")
	writeContent(t, sitePath, "b.html", "---\nid: 2\nslug: b\n---\n<p>b</p>\n")

	prevDrain := syncDrain
	t.Cleanup(func() { syncDrain = prevDrain })
	syncDrain = true
	captureStdout(t, func() {
		if err := runSync(syncCmd, nil); err != nil {
			t.Fatalf("runSync: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := deleteCmd.RunE(deleteCmd, []string{"1"}); err != nil {
			t.Fatalf("delete: %v", err)
		}
	})
	if resp := decodeResponse(t, out); !resp.OK {
		t.Fatalf("delete failed: %s", out)
	}

	out = captureStdout(t, func() {
		if err := hereCmd.RunE(hereCmd, []string{"2"}); err != nil {
			t.Fatalf("here: %v", err)
		}
	})
	resp := decodeResponse(t, out)
	if ids, _ := resp.Data["ids"].([]interface{}); len(ids) != 0 {
		t.Fatalf("linking here after delete = %v, want none", resp.Data["ids"])
	}
}

func TestQueueAndSave(t *testing.T) {
	sitePath := initSite(t)
	useSite(t, sitePath)

	writeContent(t, sitePath, "a.html", "---\nid: 3\n---\n<p>a</p>\n")
	captureStdout(t, func() {
		if err := runSync(syncCmd, nil); err != nil {
			t.Fatalf("runSync: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := queueCmd.RunE(queueCmd, nil); err != nil {
			t.Fatalf("queue: %v", err)
		}
	})
	resp := decodeResponse(t, out)
	if pending, _ := resp.Data["pending"].([]interface{}); len(pending) != 1 || pending[0] != float64(3) {
		t.Fatalf("pending = %v, want [3]", resp.Data["pending"])
	}

	out = captureStdout(t, func() {
		if err := saveCmd.RunE(saveCmd, []string{"3,99"}); err != nil {
			t.Fatalf("save: %v", err)
		}
	})
	resp = decodeResponse(t, out)
	if skipped, _ := resp.Data["skipped"].([]interface{}); len(skipped) != 2 {
		t.Errorf("skipped = %v, want [3 99] (already queued, missing)", resp.Data["skipped"])
	}
}
