package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"monochrome/format"

	"github.com/spf13/cobra"
)

func newHistoryCommand(withApp appRunner) *cobra.Command {
	var clearHistory bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished downloads, most recent first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			out := cmd.OutOrStdout()

			if clearHistory {
				if persist := a.tracker.ClearHistory(); !persist.OK() {
					return fmt.Errorf("history cleared in memory but not saved: %w", persist.Err)
				}
				fmt.Fprintln(out, "History cleared")
				return nil
			}

			history := a.tracker.History()
			if len(history) == 0 {
				fmt.Fprintln(out, "No downloads in history")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tNAME\tARTIST\tSIZE\tDURATION\tFINISHED\tERROR")
			for _, r := range history {
				finished := time.UnixMilli(r.EndTime).Format("2006-01-02 15:04")
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Status, r.Name, r.ArtistName, format.FileSize(r.FileSize),
					format.Duration(r.Duration()), finished, r.Error)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "Remove every history entry")
	return cmd
}
