package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// replaceFile writes the output of write to a sibling temp file and renames
// it over path. Readers see either the old file or the complete new one.
func replaceFile(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		// Windows refuses to rename over an existing file.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("replace %s: %w", path, err)
		}
		return os.Rename(tmp.Name(), path)
	}
	return nil
}

func writeString(path, s string) error {
	return replaceFile(path, func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader(s))
		return err
	})
}
