// Package audit keeps the append-only operation history of a site.
//
// Each line of .wlh/history.log is one JSON entry describing an operation
// that changed the link index: a drain, a repair, a deletion or a lifecycle
// step.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// FileName is the history file inside the index directory.
const FileName = "history.log"

// Longest history line read back. Drains of huge batches beyond this are
// skipped when reading.
const maxLine = 4 << 20

// Operations recorded in the history.
const (
	OpInstall   = "install"
	OpUpgrade   = "upgrade"
	OpUninstall = "uninstall"
	OpSync      = "sync"
	OpDrain     = "drain"
	OpDelete    = "delete"
	OpRepair    = "repair"
)

// Entry is one history line.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Operation string    `json:"op"`

	// RunID identifies the drain an entry belongs to.
	RunID string `json:"run_id,omitempty"`

	IDs    []int64 `json:"ids,omitempty"`
	Failed []int64 `json:"failed,omitempty"`

	// Version is the schema version for lifecycle operations.
	Version string `json:"version,omitempty"`

	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Logger appends entries to a site's history. A disabled Logger is a no-op.
type Logger struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

// New creates the history logger of the index directory indexDir.
func New(indexDir string, enabled bool) *Logger {
	return &Logger{path: filepath.Join(indexDir, FileName), enabled: enabled}
}

// Enabled returns true if the history is kept.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Log appends an entry, stamping it with the current time when unset.
func (l *Logger) Log(entry Entry) error {
	if !l.Enabled() {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return f.Close()
}

// LogDrain records one drain. Empty drains are not recorded.
func (l *Logger) LogDrain(runID string, batch, failed []int64, took time.Duration) error {
	if len(batch) == 0 {
		return nil
	}
	return l.Log(Entry{
		Operation: OpDrain,
		RunID:     runID,
		IDs:       batch,
		Failed:    failed,
		Extra:     map[string]interface{}{"duration_ms": took.Milliseconds()},
	})
}

// LogIDs records an operation on a set of documents. Nothing is written
// when ids is empty.
func (l *Logger) LogIDs(op string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return l.Log(Entry{Operation: op, IDs: ids})
}

// LogLifecycle records install, upgrade or uninstall.
func (l *Logger) LogLifecycle(op, version string) error {
	return l.Log(Entry{Operation: op, Version: version})
}

// Read returns every entry, oldest first. Malformed lines are skipped.
func (l *Logger) Read() ([]Entry, error) {
	return l.readWhere(nil)
}

// ReadSince returns the entries at or after since.
func (l *Logger) ReadSince(since time.Time) ([]Entry, error) {
	return l.readWhere(func(e Entry) bool { return !e.Timestamp.Before(since) })
}

// ReadForDocument returns the entries that name id.
func (l *Logger) ReadForDocument(id int64) ([]Entry, error) {
	return l.readWhere(func(e Entry) bool {
		return slices.Contains(e.IDs, id) || slices.Contains(e.Failed, id)
	})
}

func (l *Logger) readWhere(keep func(Entry) bool) ([]Entry, error) {
	if !l.Enabled() {
		return nil, nil
	}
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) != nil {
			continue
		}
		if keep == nil || keep(e) {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

// Tail returns the last n entries of entries, or all of them when n <= 0.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
