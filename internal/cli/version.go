package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/buildinfo"
	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/ui"
)

const (
	defaultModulePath = "github.com/aidanlsb/wlh"
	develVersion      = "devel"
)

type versionInfo struct {
	Version       string `json:"version"`
	SchemaVersion string `json:"schema_version"`
	ModulePath    string `json:"module_path"`
	Commit        string `json:"commit,omitempty"`
	CommitTime    string `json:"commit_time,omitempty"`
	Modified      bool   `json:"modified"`
	GoVersion     string `json:"go_version"`
	GOOS          string `json:"goos"`
	GOARCH        string `json:"goarch"`
}

// Replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show wlh version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersionInfo()
		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}
		fmt.Print(info.table())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:       develVersion,
		SchemaVersion: engine.Version,
		ModulePath:    defaultModulePath,
		GoVersion:     runtime.Version(),
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
	}
	if bi, ok := readBuildInfo(); ok && bi != nil {
		info.merge(bi)
	}
	info.stamp()
	return info
}

// merge overlays what the Go toolchain recorded in the binary.
func (v *versionInfo) merge(bi *debug.BuildInfo) {
	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}

	set(&v.ModulePath, bi.Main.Path)
	set(&v.GoVersion, bi.GoVersion)
	set(&v.GOOS, settings["GOOS"])
	set(&v.GOARCH, settings["GOARCH"])
	v.Version = normalizeVersion(bi.Main.Version)
	v.Commit = settings["vcs.revision"]
	v.CommitTime = settings["vcs.time"]
	v.Modified = strings.EqualFold(settings["vcs.modified"], "true")
}

// stamp fills the fields the build info left empty from release ldflags.
func (v *versionInfo) stamp() {
	if !buildinfo.Stamped() && buildinfo.Date == "" {
		return
	}
	if v.Version == develVersion && buildinfo.Version != "" {
		v.Version = normalizeVersion(buildinfo.Version)
	}
	if v.Commit == "" {
		v.Commit = buildinfo.Commit
	}
	if v.CommitTime == "" {
		v.CommitTime = buildinfo.Date
	}
}

func (v versionInfo) table() string {
	t := ui.NewTable(2)
	t.AddRow(ui.Bold.Render("wlh"), v.Version)
	t.AddRow(ui.Muted.Render("schema"), v.SchemaVersion)
	t.AddRow(ui.Muted.Render("module"), v.ModulePath)
	if v.Commit != "" {
		commit := v.Commit
		if v.Modified {
			commit += " (modified)"
		}
		t.AddRow(ui.Muted.Render("commit"), commit)
	}
	if v.CommitTime != "" {
		t.AddRow(ui.Muted.Render("built"), v.CommitTime)
	}
	t.AddRow(ui.Muted.Render("go"), fmt.Sprintf("%s %s/%s", v.GoVersion, v.GOOS, v.GOARCH))
	return t.String()
}

func normalizeVersion(version string) string {
	if version == "" || version == "(devel)" {
		return develVersion
	}
	return version
}
