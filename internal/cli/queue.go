package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/queue"
	"github.com/aidanlsb/wlh/internal/ui"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Process every queued document",
	Long: `Processes the pending queue: each queued document has its links extracted
and its outbound and inbound link sets updated. The queue is emptied even
when a document fails; a failed document is retried once it changes again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(siteOptions{lock: true})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		report, err := s.engine.Drain()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		s.recordDrain(report)
		warnings := append(s.upgradeWarnings(), drainWarnings(report)...)

		if isJSONOutput() {
			outputSuccessWithWarnings(report, warnings, metaFor(len(report.Batch), report.Duration))
			return nil
		}
		printDrain(report)
		printWarnings(warnings)
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List the documents waiting for the next drain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(siteOptions{})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		pending, err := s.engine.Pending()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"pending": idsToInt64(pending),
			}, &Meta{Count: len(pending)})
			return nil
		}
		if len(pending) == 0 {
			fmt.Println(ui.Success("Queue is empty"))
			return nil
		}
		fmt.Println(ui.Infof("%s pending: %s", ui.Count(len(pending), "document", "documents"), printIDs(pending)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(queueCmd)
}

func drainWarnings(report queue.DrainReport) []Warning {
	var warnings []Warning
	for _, id := range report.FailedIDs() {
		warnings = append(warnings, Warning{
			Code:    WarnDrainFailures,
			Message: fmt.Sprintf("document %d failed: %v", id, report.Failed[id]),
		})
	}
	return warnings
}

func printDrain(report queue.DrainReport) {
	if len(report.Batch) == 0 {
		fmt.Println(ui.Success("Queue is empty, nothing to drain"))
		return
	}
	failed := len(report.Failed)
	fmt.Println(ui.Successf("Drained %s in %s (%d failed)",
		ui.Count(len(report.Batch), "document", "documents"),
		report.Duration.Round(1e6), failed))
}
