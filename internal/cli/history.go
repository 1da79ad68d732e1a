package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/weftsh/weft/internal/output"
	"github.com/weftsh/weft/internal/persistence"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent builds in this directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := persistence.Open(".")
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		runs, err := store.RecentRuns(historyLimit)
		if err != nil {
			return err
		}

		if jsonFlag {
			return output.FormatRunsJSON(os.Stdout, runs)
		}
		output.RunsTable(os.Stdout, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "how many runs to show")
}
