package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/ui"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the drain schedule, the pending queue and the version markers",
	Long: `Uninstalls the link index: unregisters the drain schedule and deletes the
pending queue and the stored version markers.

Stored link sets are kept; 'wlh init' re-installs on top of them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(siteOptions{lock: true})
		if err != nil {
			return err
		}
		defer s.close()

		pending, err := s.engine.Pending()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		if err := s.engine.Uninstall(); err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		s.record(s.history.Log(audit.Entry{Operation: audit.OpUninstall, IDs: idsToInt64(pending)}))

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"uninstalled":     true,
				"dropped_pending": idsToInt64(pending),
			}, nil)
			return nil
		}
		fmt.Println(ui.Success("Uninstalled link index"))
		if len(pending) > 0 {
			fmt.Println(ui.Warningf("Dropped %s from the pending queue", ui.Count(len(pending), "document", "documents")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
