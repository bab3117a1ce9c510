package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/content"
	"github.com/aidanlsb/wlh/internal/queue"
	"github.com/aidanlsb/wlh/internal/ui"
)

var (
	syncForce bool
	syncDrain bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load the content directory into the index",
	Long: `Loads every file under the content directory into the document index.

New and modified files are saved and queued for the next drain. Documents
whose files were removed are deleted along with their links. Unchanged
files are skipped unless --force is given.

With --drain the queue is processed right after the sync.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

type syncResult struct {
	*content.SyncReport
	Drain *queue.DrainReport `json:"drain,omitempty"`
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "Save every file, even unchanged ones")
	syncCmd.Flags().BoolVar(&syncDrain, "drain", false, "Process the queue after syncing")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := openSite(siteOptions{lock: true})
	if err != nil {
		return err
	}
	defer s.close()
	if err := s.requireInstalled(); err != nil {
		return err
	}

	var report *content.SyncReport
	err = ui.Spin("Syncing "+s.cfg.ContentPath(s.path), isJSONOutput(), func() error {
		var err error
		report, err = s.syncer().SyncAll(syncForce)
		return err
	})
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}

	s.record(s.history.LogIDs(audit.OpDelete, idsToInt64(report.Deleted)))
	result := syncResult{SyncReport: report}
	if syncDrain {
		drained, err := s.engine.Drain()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		s.recordDrain(drained)
		result.Drain = &drained
	}

	warnings := s.upgradeWarnings()
	for _, fe := range report.Errors {
		warnings = append(warnings, Warning{Code: WarnSyncErrors, Message: fmt.Sprintf("%s: %s", fe.Path, fe.Error)})
	}
	if result.Drain != nil {
		warnings = append(warnings, drainWarnings(*result.Drain)...)
	}

	if isJSONOutput() {
		outputSuccessWithWarnings(result, warnings, nil)
		return nil
	}

	fmt.Println(ui.Successf("Synced %s: %s saved, %s removed, %d unchanged",
		s.cfg.ContentPath(s.path),
		ui.Count(len(report.Saved), "document", "documents"),
		ui.Count(len(report.Deleted), "document", "documents"),
		report.Unchanged))
	if len(report.Queued) > 0 {
		fmt.Println(ui.Infof("Queued: %s", printIDs(report.Queued)))
	}
	if result.Drain != nil {
		printDrain(*result.Drain)
	} else if len(report.Queued) > 0 {
		fmt.Println(ui.Hint("Run 'wlh drain' to update the links"))
	}
	printWarnings(warnings)
	return nil
}

func printWarnings(warnings []Warning) {
	for _, w := range warnings {
		fmt.Println(ui.Warningf("%s", w.Message))
	}
}
