package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/graph"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/ui"
)

var (
	checkRepair bool
	checkDrain  bool
)

var checkCmd = &cobra.Command{
	Use:   "check [id]...",
	Short: "Verify that every link is recorded in both directions",
	Long: `Checks the link index for edges stored on one side only: a document listing
a target it links to without being in the target's inbound set, or the
reverse. Defaults to every document in the index.

With --repair stray inbound entries are dropped and the involved documents
are queued; add --drain to process them right away.

Exits non-zero when inconsistencies remain.`,
	RunE: runCheck,
}

type checkResult struct {
	Checked         int                   `json:"checked"`
	Inconsistencies []graph.Inconsistency `json:"inconsistencies"`
	Queued          []int64               `json:"queued,omitempty"`
	Remaining       []graph.Inconsistency `json:"remaining,omitempty"`
}

func init() {
	checkCmd.Flags().BoolVar(&checkRepair, "repair", false, "Fix the inconsistencies found")
	checkCmd.Flags().BoolVar(&checkDrain, "drain", false, "With --repair, drain the queue after repairing")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	var (
		ids []model.DocID
		err error
	)
	if len(args) > 0 {
		if ids, err = parseIDs(args); err != nil {
			return handleError(ErrInvalidInput, err, "")
		}
	}
	if checkDrain && !checkRepair {
		return handleErrorMsg(ErrInvalidInput, "--drain requires --repair", "")
	}

	s, err := openSite(siteOptions{lock: checkRepair})
	if err != nil {
		return err
	}
	defer s.close()
	if err := s.requireInstalled(); err != nil {
		return err
	}

	if ids == nil {
		if ids, err = s.db.AllDocumentIDs(); err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
	}
	start := time.Now()
	found, err := s.engine.Verify(ids)
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	result := checkResult{Checked: len(ids), Inconsistencies: found}
	remaining := found

	if checkRepair && len(found) > 0 {
		queued, err := s.engine.Repair(found)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		result.Queued = idsToInt64(queued)
		s.record(s.history.Log(audit.Entry{
			Operation: audit.OpRepair,
			IDs:       result.Queued,
			Extra:     map[string]interface{}{"inconsistencies": len(found)},
		}))
		if checkDrain {
			drained, err := s.engine.Drain()
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			s.recordDrain(drained)
		}
		if remaining, err = s.engine.Verify(ids); err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		result.Remaining = remaining
	}

	if isJSONOutput() {
		if len(remaining) > 0 {
			return handleErrorWithDetails(ErrInconsistent,
				fmt.Sprintf("%d inconsistent links", len(remaining)),
				"Run 'wlh check --repair --drain'", result)
		}
		outputSuccessWithWarnings(result, s.upgradeWarnings(), metaFor(len(found), time.Since(start)))
		return nil
	}

	if len(found) == 0 {
		fmt.Println(ui.Successf("Checked %s, no inconsistencies", ui.Count(len(ids), "document", "documents")))
		return nil
	}
	t := ui.NewTable(3).Header("SOURCE", "TARGET", "PROBLEM")
	for _, inc := range found {
		t.AddRow(ui.DocID(int64(inc.Source)), ui.DocID(int64(inc.Target)), inc.String())
	}
	fmt.Print(t.String())

	if checkRepair {
		fmt.Println(ui.Successf("Queued for repair: %s", printIDs(toDocIDs(result.Queued))))
	}
	if len(remaining) > 0 {
		return fmt.Errorf("%d inconsistent links", len(remaining))
	}
	return nil
}

func toDocIDs(ids []int64) []model.DocID {
	out := make([]model.DocID, len(ids))
	for i, id := range ids {
		out[i] = model.DocID(id)
	}
	return out
}
