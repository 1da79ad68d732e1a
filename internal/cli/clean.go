package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftsh/weft/internal/lock"
	"github.com/weftsh/weft/internal/persistence"
	"github.com/weftsh/weft/internal/tui"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove weft bookkeeping from this directory",
	Long: `Clean removes the run history, the build lock and the debug log from the
working directory. Build outputs are left alone; rules decide how those are
removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed := 0
		for _, path := range []string{persistence.WeftDir, lock.FileName, ".weft-debug.log"} {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("removing %s: %w", path, err)
			}
			removed++
			if !quietFlag {
				fmt.Fprintf(os.Stderr, "%s removed %s\n", tui.Bullet(), path)
			}
		}
		if !quietFlag {
			if removed == 0 {
				fmt.Fprintln(os.Stderr, tui.MutedStyle.Render("nothing to clean"))
			} else {
				fmt.Fprintln(os.Stderr, tui.ExitSuccess("Cleaned"))
			}
		}
		return nil
	},
}
