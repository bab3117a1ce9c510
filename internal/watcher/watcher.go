// Package watcher keeps the document store in step with a content directory.
//
// It is used by `wlh serve --watch`.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aidanlsb/wlh/internal/content"
	"github.com/aidanlsb/wlh/internal/logger"
)

const defaultDebounce = 100 * time.Millisecond

// Config holds configuration options for the Watcher.
type Config struct {
	Root          string
	DebounceDelay time.Duration // Default: 100ms
	Logger        *logger.Logger

	// OnChange is called with the absolute path of a content file that was
	// created or written, once writes have settled.
	OnChange func(path string) error
	// OnRemove is called with the absolute path of a content file that was
	// removed or renamed away and is still missing once events settle.
	OnRemove func(path string) error
}

// Watcher reports settled writes and removals of content files under a
// directory tree. Hidden paths and node_modules are skipped.
type Watcher struct {
	cfg Config
	log *logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("content directory is required")
	}
	if cfg.OnChange == nil || cfg.OnRemove == nil {
		return nil, errors.New("change and remove callbacks are required")
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = defaultDebounce
	}
	return &Watcher{
		cfg:    cfg,
		log:    logger.OrNop(cfg.Logger).With("component", "watcher"),
		timers: make(map[string]*time.Timer),
	}, nil
}

// Start watches the content directory until ctx is cancelled. Pending
// changes that have not settled by then are dropped.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()
	defer w.stopTimers()

	if err := w.watchTree(fsw, w.cfg.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Root, err)
	}
	w.log.Info("watching content", "root", w.cfg.Root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name
	if w.shouldIgnore(path) {
		return
	}
	if !content.IsContentFile(path) {
		if event.Has(fsnotify.Create) {
			// A new directory; errors mean it is a file or already gone.
			_ = w.watchTree(fsw, path)
		}
		return
	}

	w.log.Debug("file event", "op", event.Op.String(), "path", path)
	// Editors that save by renaming over the original emit Rename or Remove
	// followed by Create, so every op settles before the file is looked at.
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.debounce(path)
	}
}

// debounce (re)starts the settle timer for path.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.cfg.DebounceDelay)
		return
	}
	w.timers[path] = time.AfterFunc(w.cfg.DebounceDelay, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if _, ok := w.timers[path]; !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := w.cfg.OnRemove(path); err != nil {
			w.log.Error("failed to remove document", "path", path, "error", err)
			return
		}
		w.log.Debug("removed file", "path", path)
		return
	}
	if err := w.cfg.OnChange(path); err != nil {
		w.log.Error("failed to sync file", "path", path, "error", err)
		return
	}
	w.log.Debug("synced file", "path", path)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// watchTree adds a watch for dir and every directory below it.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if path == dir {
				return fs.ErrInvalid
			}
			return nil
		}
		if path != w.cfg.Root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.log.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// shouldIgnore reports whether any element of path below the root is hidden
// or named node_modules.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") || part == "node_modules" {
			return true
		}
	}
	return false
}
