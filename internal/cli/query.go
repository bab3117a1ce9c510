package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/ui"
)

var hereHTML bool

var hereCmd = &cobra.Command{
	Use:   "here <id>",
	Short: "List the documents linking to a document",
	Long: `Lists the published documents that link to the given document.

With --html the list is printed as the markup a site embeds below the
document, one permalink per linking document. Nothing is printed when no
document links here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, ok := model.ParseDocID(args[0])
		if !ok {
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("invalid document id %q", args[0]), "")
		}
		s, err := openSite(siteOptions{})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		doc, err := s.db.GetDocument(id)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		if doc == nil {
			return handleErrorMsg(ErrDocumentNotFound, fmt.Sprintf("document %d not found", id), "Run 'wlh sync' to load the content directory")
		}

		ids, err := s.engine.LinkingHere(id)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		docs, err := s.engine.Documents(ids)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		r := s.renderer()

		if isJSONOutput() {
			outputSuccessWithWarnings(map[string]interface{}{
				"id":        int64(id),
				"ids":       idsToInt64(ids),
				"documents": documentItems(listItems(s, docs)),
				"html":      r.List(id, docs),
			}, s.upgradeWarnings(), &Meta{Count: len(docs)})
			return nil
		}
		if hereHTML {
			if markup := r.List(id, docs); markup != "" {
				fmt.Println(markup)
			}
			return nil
		}
		out, err := ui.NewDisplayContext().RenderList("Linking here: "+doc.DisplayTitle(), listItems(s, docs))
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		fmt.Print(out)
		return nil
	},
}

var toCmd = &cobra.Command{
	Use:   "to <id>",
	Short: "List the documents a document links to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, ok := model.ParseDocID(args[0])
		if !ok {
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("invalid document id %q", args[0]), "")
		}
		s, err := openSite(siteOptions{})
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireInstalled(); err != nil {
			return err
		}

		doc, err := s.db.GetDocument(id)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		if doc == nil {
			return handleErrorMsg(ErrDocumentNotFound, fmt.Sprintf("document %d not found", id), "Run 'wlh sync' to load the content directory")
		}

		ids, err := s.engine.LinkingTo(id)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		docs, err := s.db.GetDocuments(ids)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"id":        int64(id),
				"ids":       idsToInt64(ids),
				"documents": documentItems(listItems(s, docs)),
			}, &Meta{Count: len(ids)})
			return nil
		}
		out, err := ui.NewDisplayContext().RenderList("Links from "+doc.DisplayTitle(), listItems(s, docs))
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	hereCmd.Flags().BoolVar(&hereHTML, "html", false, "Print the embeddable HTML list")
	rootCmd.AddCommand(hereCmd)
	rootCmd.AddCommand(toCmd)
}

type documentItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func listItems(s *site, docs []*model.Document) []ui.ListItem {
	r := s.renderer()
	items := make([]ui.ListItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, ui.ListItem{ID: int64(d.ID), Title: d.DisplayTitle(), URL: r.Permalink(d)})
	}
	return items
}

func documentItems(items []ui.ListItem) []documentItem {
	out := make([]documentItem, len(items))
	for i, it := range items {
		out[i] = documentItem{ID: it.ID, Title: it.Title, URL: it.URL}
	}
	return out
}
