package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/docs"
	"github.com/aidanlsb/wlh/internal/ui"
)

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Read the bundled guide",
	Long:  `Without a topic, lists the guide pages. With one, prints it.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			topics, err := docs.Topics()
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			if isJSONOutput() {
				outputSuccess(map[string]interface{}{"topics": topics}, &Meta{Count: len(topics)})
				return nil
			}
			t := ui.NewTable(2)
			for _, topic := range topics {
				t.AddRow(ui.Bold.Render(topic.Name), topic.Title)
			}
			fmt.Print(t.String())
			fmt.Println(ui.Hint("Run 'wlh docs <topic>' to read one"))
			return nil
		}

		body, ok := docs.Read(args[0])
		if !ok {
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("unknown topic %q", args[0]), "Run 'wlh docs' to list topics")
		}
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"topic": args[0], "markdown": body}, nil)
			return nil
		}
		out, err := ui.NewDisplayContext().Render(body)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
