package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// The binary is built once per test process and shared by every CLISite.
var built struct {
	sync.Mutex
	path string
}

// BuildCLI builds ./cmd/wlh into a temp directory and returns the binary
// path. RunCLI calls it; call it directly only when the path itself is
// needed.
func BuildCLI(t *testing.T) string {
	t.Helper()
	built.Lock()
	defer built.Unlock()

	if built.path != "" {
		if _, err := os.Stat(built.path); err == nil {
			return built.path
		}
		// Temp cleanup on some CI runners removes it between packages.
		built.path = ""
	}

	path, err := buildBinary()
	if err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}
	built.path = path
	return path
}

func buildBinary() (string, error) {
	root, err := moduleRoot()
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "wlh-cli-bin-*")
	if err != nil {
		return "", err
	}
	name := "wlh"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(dir, name)

	cmd := exec.Command("go", "build", "-o", path, "./cmd/wlh")
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("go build: %w\n%s", err, out)
	}
	return path, nil
}

// moduleRoot is the nearest parent of the working directory with a go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod above %s", dir)
		}
		dir = parent
	}
}
