// Package buildinfo holds release metadata stamped in with
// -ldflags "-X github.com/aidanlsb/wlh/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// Stamped reports whether the binary was built by the release tooling.
func Stamped() bool {
	return Version != "" || Commit != ""
}
