package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/weftsh/weft/internal/output"
	"github.com/weftsh/weft/workflow"
)

var graphCmd = &cobra.Command{
	Use:   "graph [target]",
	Short: "Show the job graph for a target without building",
	Long: `Graph plans the requested target the same way build does and prints the
resulting job graph, marking each job as pending or up to date. Nothing is
executed. Without a target the first rule is planned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := loadWorkflow()
		if err != nil {
			return err
		}

		target := ""
		if len(args) == 1 {
			target = args[0]
		} else if first := wf.First(); first != nil {
			target = first.Name()
		} else {
			return workflow.ErrNoRules
		}

		root, err := wf.Plan(target, workflow.RunConfig{ForceThis: force, ForceAll: forceAll})
		if err != nil {
			return err
		}

		if jsonFlag {
			return output.FormatPlanJSON(os.Stdout, root)
		}
		output.PlanTree(os.Stdout, root)
		return nil
	},
}

func init() {
	graphCmd.Flags().BoolVar(&force, "force", false, "plan as if the requested rule were forced")
	graphCmd.Flags().BoolVar(&forceAll, "force-all", false, "plan as if every rule were forced")
}
