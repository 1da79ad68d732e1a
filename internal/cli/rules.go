package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/weftsh/weft/internal/output"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules in the rules file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := loadWorkflow()
		if err != nil {
			return err
		}

		if jsonFlag {
			return output.FormatRulesJSON(os.Stdout, wf.Rules())
		}
		output.RulesList(os.Stdout, wf.Rules())
		return nil
	},
}
