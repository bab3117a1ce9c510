package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrIndexLocked indicates another process holds the site lock.
var ErrIndexLocked = errors.New("index is locked by another process")

// Lock is an advisory, exclusive lock on a site's index directory. One
// process at a time may mutate the index.
type Lock struct {
	file *os.File
}

// AcquireLock takes the site lock without blocking. It returns
// ErrIndexLocked when another process holds it.
func AcquireLock(sitePath string) (*Lock, error) {
	if err := ensureDir(sitePath); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(sitePath, DirName, "index.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open index lock: %w", err)
	}

	ok, err := tryLockFile(f)
	switch {
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	case !ok:
		f.Close()
		return nil, ErrIndexLocked
	}
	return &Lock{file: f}, nil
}

// Release drops the lock. Releasing a nil Lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unlockFile(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
