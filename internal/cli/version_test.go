package cli

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/aidanlsb/wlh/internal/buildinfo"
	"github.com/aidanlsb/wlh/internal/engine"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	t.Cleanup(func() { readBuildInfo = prev })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestCurrentVersionInfo(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main:      debug.Module{Path: "example.com/fork/wlh", Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-02-14T17:00:00Z"},
			{Key: "vcs.modified", Value: "TRUE"},
			{Key: "GOOS", Value: "windows"},
			{Key: "GOARCH", Value: "amd64"},
		},
	})

	got := currentVersionInfo()
	want := versionInfo{
		Version:       "v1.2.3",
		SchemaVersion: engine.Version,
		ModulePath:    "example.com/fork/wlh",
		Commit:        "abc123",
		CommitTime:    "2026-02-14T17:00:00Z",
		Modified:      true,
		GoVersion:     "go1.23.4",
		GOOS:          "windows",
		GOARCH:        "amd64",
	}
	if got != want {
		t.Fatalf("currentVersionInfo() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestCurrentVersionInfoWithoutBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)

	got := currentVersionInfo()
	if got.Version != develVersion || got.ModulePath != defaultModulePath {
		t.Fatalf("got %s %s", got.Version, got.ModulePath)
	}
	if got.GoVersion != runtime.Version() || got.GOOS != runtime.GOOS || got.GOARCH != runtime.GOARCH {
		t.Fatalf("runtime fields not used: %+v", got)
	}
}

func TestCurrentVersionInfoLdflags(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	prevVersion, prevCommit, prevDate := buildinfo.Version, buildinfo.Commit, buildinfo.Date
	t.Cleanup(func() {
		buildinfo.Version, buildinfo.Commit, buildinfo.Date = prevVersion, prevCommit, prevDate
	})
	buildinfo.Version, buildinfo.Commit, buildinfo.Date = "v2.0.0", "feedface", "2026-03-01"

	got := currentVersionInfo()
	if got.Version != "v2.0.0" || got.Commit != "feedface" || got.CommitTime != "2026-03-01" {
		t.Fatalf("ldflags not applied: %+v", got)
	}
}

func TestVersionCommandJSONOutput(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Path: defaultModulePath, Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "deadbeef"}},
	})
	prevJSON := jsonOutput
	t.Cleanup(func() { jsonOutput = prevJSON })
	jsonOutput = true

	out := captureStdout(t, func() {
		if err := versionCmd.RunE(versionCmd, nil); err != nil {
			t.Fatalf("versionCmd.RunE: %v", err)
		}
	})

	var resp struct {
		OK   bool        `json:"ok"`
		Data versionInfo `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil || !resp.OK {
		t.Fatalf("expected ok JSON response, got %v; out=%s", err, out)
	}
	data := resp.Data
	if data.Version != develVersion || data.Commit != "deadbeef" || data.SchemaVersion != engine.Version {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestVersionTable(t *testing.T) {
	info := versionInfo{Version: "v1.0.0", SchemaVersion: engine.Version, ModulePath: defaultModulePath, Commit: "abc", Modified: true, GoVersion: "go1.24", GOOS: "linux", GOARCH: "arm64"}
	out := info.table()
	for _, want := range []string{"v1.0.0", "abc (modified)", "go1.24 linux/arm64"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
