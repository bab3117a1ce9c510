package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/scheduler"
	"github.com/aidanlsb/wlh/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the install state, index counts, schedule and queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(siteOptions{})
		if err != nil {
			return err
		}
		defer s.close()

		installed, err := s.engine.InstalledVersion()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		stats, err := s.db.Stats()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		schedules, err := s.schedule.Entries()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		pending, err := s.engine.Pending()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccessWithWarnings(map[string]interface{}{
				"site":              s.path,
				"base_url":          s.cfg.BaseURL,
				"installed_version": installed,
				"version":           engine.Version,
				"post_types":        s.engine.PostTypes(),
				"stats":             stats,
				"schedules":         schedules,
				"pending":           idsToInt64(pending),
			}, s.upgradeWarnings(), nil)
			return nil
		}

		printStatus(s.path, s.cfg.BaseURL, installed, s.engine.PostTypes(), stats, schedules, pending)
		printWarnings(s.upgradeWarnings())
		return nil
	},
}

var (
	historyLimit int
	historySince string
	historyDoc   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded drains, repairs and deletions",
	Long: `Shows the operation history kept in .wlh/history.log, newest last.

Disable it with 'history = false' in wlh.toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(siteOptions{})
		if err != nil {
			return err
		}
		defer s.close()

		if !s.history.Enabled() {
			return handleErrorMsg(ErrInvalidInput, "history is disabled for this site", "Set 'history = true' in wlh.toml")
		}

		var entries []audit.Entry
		switch {
		case historyDoc != "":
			id, ok := model.ParseDocID(historyDoc)
			if !ok {
				return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("invalid document id %q", historyDoc), "")
			}
			entries, err = s.history.ReadForDocument(int64(id))
		case historySince != "":
			d, perr := time.ParseDuration(historySince)
			if perr != nil {
				return handleError(ErrInvalidInput, fmt.Errorf("invalid --since: %w", perr), "Use a duration such as 24h or 30m")
			}
			entries, err = s.history.ReadSince(time.Now().Add(-d))
		default:
			entries, err = s.history.Read()
		}
		if err != nil {
			return handleError(ErrFileReadError, err, "")
		}
		entries = audit.Tail(entries, historyLimit)

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"entries": entries}, &Meta{Count: len(entries)})
			return nil
		}
		if len(entries) == 0 {
			fmt.Println(ui.Infof("No history recorded"))
			return nil
		}
		t := ui.NewTable(3)
		for _, e := range entries {
			t.AddRow(ui.Muted.Render(e.Timestamp.Local().Format(time.DateTime)), ui.Bold.Render(e.Operation), describeEntry(e))
		}
		fmt.Print(t.String())
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show at most this many entries (0 for all)")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only entries newer than this duration (e.g. 24h)")
	historyCmd.Flags().StringVar(&historyDoc, "doc", "", "Only entries naming this document id")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

func printStatus(path, baseURL, installed string, postTypes []string, stats *index.IndexStats, schedules []scheduler.Entry, pending []model.DocID) {
	t := ui.NewTable(2)
	t.AddRow(ui.Muted.Render("site"), path)
	t.AddRow(ui.Muted.Render("base url"), baseURL)
	if installed == "" {
		t.AddRow(ui.Muted.Render("installed"), ui.Warningf("no (run 'wlh init')"))
	} else {
		t.AddRow(ui.Muted.Render("installed"), installed)
	}
	t.AddRow(ui.Muted.Render("post types"), strings.Join(postTypes, ", "))
	t.AddRow(ui.Muted.Render("documents"), fmt.Sprintf("%d (%d published)", stats.DocumentCount, stats.PublishedCount))
	t.AddRow(ui.Muted.Render("attributes"), fmt.Sprintf("%d", stats.AttributeCount))
	for _, e := range schedules {
		t.AddRow(ui.Muted.Render("schedule"), fmt.Sprintf("%s every %s", e.Name, e.Interval()))
	}
	t.AddRow(ui.Muted.Render("pending"), printIDs(pending))
	fmt.Print(t.String())
}

func describeEntry(e audit.Entry) string {
	switch e.Operation {
	case audit.OpInstall, audit.OpUpgrade:
		return e.Version
	case audit.OpDrain:
		msg := ui.Count(len(e.IDs), "document", "documents")
		if len(e.Failed) > 0 {
			msg += fmt.Sprintf(", %d failed", len(e.Failed))
		}
		return msg + " " + ui.Muted.Render(e.RunID)
	default:
		parts := make([]string, len(e.IDs))
		for i, id := range e.IDs {
			parts[i] = fmt.Sprintf("%d", id)
		}
		return strings.Join(parts, ", ")
	}
}
