package engine

import (
	"fmt"

	"github.com/aidanlsb/wlh/internal/queue"
)

// Install marks the index installed and runs the setup steps of Upgrade.
func (e *Engine) Install() error {
	if err := e.opts.SetOption(OptionInstall, "1"); err != nil {
		return fmt.Errorf("failed to write install marker: %w", err)
	}
	return e.Upgrade()
}

// Upgrade writes the current version marker, creates the pending queue when
// it does not exist yet and registers the drain schedule unless already
// registered. It is safe to run repeatedly.
func (e *Engine) Upgrade() error {
	if err := e.opts.SetOption(OptionDBVersion, Version); err != nil {
		return fmt.Errorf("failed to write version marker: %w", err)
	}
	if _, err := e.opts.AddOption(queue.OptionKey, ""); err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	if e.sched == nil {
		return nil
	}
	scheduled, err := e.sched.Scheduled(ScheduleName)
	if err != nil {
		return fmt.Errorf("failed to read schedule: %w", err)
	}
	if scheduled {
		return nil
	}
	if err := e.sched.Schedule(ScheduleName, e.interval); err != nil {
		return fmt.Errorf("failed to register schedule: %w", err)
	}
	e.log.Info("registered drain schedule", "name", ScheduleName, "interval", e.interval)
	return nil
}

// Uninstall unregisters the schedule and deletes the queue and every
// lifecycle marker. Link attributes are left in place.
func (e *Engine) Uninstall() error {
	if err := e.opts.SetOption(OptionUninstall, "1"); err != nil {
		return fmt.Errorf("failed to write uninstall marker: %w", err)
	}
	if e.sched != nil {
		if err := e.sched.Unschedule(ScheduleName); err != nil {
			return fmt.Errorf("failed to unregister schedule: %w", err)
		}
	}
	for _, key := range []string{queue.OptionKey, OptionDBVersion, OptionInstall, OptionUninstall} {
		if err := e.opts.DeleteOption(key); err != nil {
			return fmt.Errorf("failed to delete option %s: %w", key, err)
		}
	}
	return nil
}

// InstalledVersion returns the stored version marker, or "" when none.
func (e *Engine) InstalledVersion() (string, error) {
	v, _, err := e.opts.GetOption(OptionDBVersion)
	if err != nil {
		return "", fmt.Errorf("failed to read version marker: %w", err)
	}
	return v, nil
}

// NeedsUpgrade reports whether the stored version differs from Version.
// An index that was never installed needs no upgrade; it needs Install.
func (e *Engine) NeedsUpgrade() (bool, error) {
	v, err := e.InstalledVersion()
	if err != nil {
		return false, err
	}
	return v != "" && v != Version, nil
}

// RequireInstalled returns ErrNotInstalled unless a version marker exists.
func (e *Engine) RequireInstalled() error {
	v, err := e.InstalledVersion()
	if err != nil {
		return err
	}
	if v == "" {
		return ErrNotInstalled
	}
	return nil
}
