package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/graph"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/ui"
)

var saveCmd = &cobra.Command{
	Use:   "save <id>...",
	Short: "Queue documents for the next drain",
	Long: `Marks documents as saved so their links are updated on the next drain.

Documents that do not exist, are not published or are of a type outside
post_types are not queued.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return handleError(ErrInvalidInput, err, "Pass numeric document ids, e.g. 'wlh save 12 14'")
		}
		s, err := openSite(siteOptions{lock: true})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		queued := []model.DocID{}
		skipped := []model.DocID{}
		for _, id := range ids {
			ok, err := s.engine.DocumentSaved(id)
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			if ok {
				queued = append(queued, id)
			} else {
				skipped = append(skipped, id)
			}
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"queued":  idsToInt64(queued),
				"skipped": idsToInt64(skipped),
			}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Queued %s", ui.Count(len(queued), "document", "documents")))
		if len(skipped) > 0 {
			fmt.Println(ui.Infof("Not queued (already pending or not eligible): %s", printIDs(skipped)))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Remove documents and their links from the index",
	Long: `Deletes documents from the index. Each document is dropped from the queue,
removed from the inbound set of every document it linked to, and forgotten.

The content file is not touched; a later sync re-adds a document whose file
still exists.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return handleError(ErrInvalidInput, err, "")
		}
		s, err := openSite(siteOptions{lock: true})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		results := make([]graph.Result, 0, len(ids))
		for _, id := range ids {
			res, err := s.engine.DocumentDeleted(id)
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			if err := s.db.DeleteDocument(id); err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			results = append(results, res)
		}
		s.record(s.history.LogIDs(audit.OpDelete, idsToInt64(ids)))

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"deleted": results}, &Meta{Count: len(results)})
			return nil
		}
		for _, res := range results {
			fmt.Println(ui.Successf("Deleted %s (%s unlinked)", ui.DocID(int64(res.DocID)), ui.Count(len(res.Removed), "link", "links")))
		}
		return nil
	},
}

var processCmd = &cobra.Command{
	Use:   "process <id>...",
	Short: "Update the links of documents now, bypassing the queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return handleError(ErrInvalidInput, err, "")
		}
		s, err := openSite(siteOptions{lock: true})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		outcomes := make([]engine.Outcome, 0, len(ids))
		var warnings []Warning
		for _, id := range ids {
			out, err := s.engine.Process(id)
			if err != nil {
				return handleError(ErrDatabaseError, fmt.Errorf("failed to process %d: %w", id, err), "")
			}
			if out.Skipped {
				warnings = append(warnings, Warning{
					Code:    WarnNotPublished,
					Message: fmt.Sprintf("document %d is missing, unpublished or of an excluded type; its links were left alone", id),
				})
			}
			outcomes = append(outcomes, out)
		}

		if isJSONOutput() {
			outputSuccessWithWarnings(map[string]interface{}{"processed": outcomes}, warnings, &Meta{Count: len(outcomes)})
			return nil
		}
		for _, out := range outcomes {
			if out.Skipped {
				continue
			}
			fmt.Println(ui.Successf("%s links to %s (+%d -%d, %d of %d references kept)",
				ui.DocID(int64(out.DocID)),
				printIDs(out.Targets),
				len(out.Added), len(out.Removed),
				out.References-rejectedCount(out), out.References))
		}
		printWarnings(warnings)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(processCmd)
}

func rejectedCount(out engine.Outcome) int {
	n := 0
	for _, c := range out.Rejected {
		n += c
	}
	return n
}
