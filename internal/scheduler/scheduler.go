// Package scheduler registers named periodic jobs and runs them on a ticker.
//
// Registrations are persisted as JSON in a global option so that a later
// `wlh serve` process picks up the interval chosen at install time.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aidanlsb/wlh/internal/logger"
)

// OptionKey is the global option holding the registrations.
const OptionKey = "wlh_schedules"

// Options is global key/value storage.
type Options interface {
	GetOption(key string) (string, bool, error)
	SetOption(key, value string) error
}

// Entry is one registered job.
type Entry struct {
	Name         string    `json:"name"`
	IntervalSecs int64     `json:"interval"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Interval returns the entry's interval as a duration.
func (e Entry) Interval() time.Duration {
	return time.Duration(e.IntervalSecs) * time.Second
}

// Registry stores job registrations.
type Registry struct {
	opts Options
	now  func() time.Time
}

func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, now: time.Now}
}

// Schedule registers name to run every interval, replacing any previous
// registration. Intervals are kept with second precision.
func (r *Registry) Schedule(name string, interval time.Duration) error {
	secs := int64(interval / time.Second)
	if secs <= 0 {
		return fmt.Errorf("invalid interval %s for %s: must be at least one second", interval, name)
	}
	entries, err := r.load()
	if err != nil {
		return err
	}
	entries[name] = Entry{Name: name, IntervalSecs: secs, RegisteredAt: r.now().UTC()}
	return r.save(entries)
}

// Unschedule removes the registration of name, if any.
func (r *Registry) Unschedule(name string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)
	return r.save(entries)
}

// Scheduled reports whether name is registered.
func (r *Registry) Scheduled(name string) (bool, error) {
	_, ok, err := r.Lookup(name)
	return ok, err
}

// Lookup returns the registration of name.
func (r *Registry) Lookup(name string) (Entry, bool, error) {
	entries, err := r.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[name]
	return e, ok, nil
}

// Entries returns every registration sorted by name.
func (r *Registry) Entries() ([]Entry, error) {
	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Registry) load() (map[string]Entry, error) {
	raw, ok, err := r.opts.GetOption(OptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules: %w", err)
	}
	entries := make(map[string]Entry)
	if !ok || raw == "" {
		return entries, nil
	}
	var list []Entry
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}
	for _, e := range list {
		entries[e.Name] = e
	}
	return entries, nil
}

func (r *Registry) save(entries map[string]Entry) error {
	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode schedules: %w", err)
	}
	if err := r.opts.SetOption(OptionKey, string(data)); err != nil {
		return fmt.Errorf("failed to write schedules: %w", err)
	}
	return nil
}

// Ticker runs Task every Interval until its context is cancelled.
type Ticker struct {
	Name     string
	Interval time.Duration
	Task     func(ctx context.Context) error

	// Immediate runs the task once before the first tick.
	Immediate bool

	Logger *logger.Logger
}

// Run blocks until ctx is done. Task errors are logged and do not stop the
// loop. Ticks that arrive while a task is running are dropped.
func (t *Ticker) Run(ctx context.Context) error {
	if t.Interval <= 0 {
		return fmt.Errorf("invalid interval %s for %s", t.Interval, t.Name)
	}
	log := logger.OrNop(t.Logger).With("job", t.Name)

	if t.Immediate {
		t.runOnce(ctx, log)
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.runOnce(ctx, log)
		case <-ctx.Done():
			log.Debug("scheduler stopped")
			return nil
		}
	}
}

func (t *Ticker) runOnce(ctx context.Context, log *logger.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := t.Task(ctx); err != nil {
		log.Error("scheduled job failed", "error", err)
	}
}
