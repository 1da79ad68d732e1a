// Package cli implements the weft command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/weftsh/weft/internal/debug"
	"github.com/weftsh/weft/internal/signal"
	"github.com/weftsh/weft/internal/tui"
	"github.com/weftsh/weft/rulesfile"
	"github.com/weftsh/weft/workflow"
)

// Global flags shared across commands.
var (
	rulesFile string
	directory string
	jobsFlag  int
	quietFlag bool
	jsonFlag  bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "A rule-driven file build tool",
	Long: `Weft builds files from declarative rules. Rules in weft.yaml describe how
output files are produced from input files through wildcard path patterns;
weft resolves which rule produces a requested target, plans the transitive
dependencies as a job graph, skips jobs whose outputs are already newer than
their inputs, and runs the rest in parallel in dependency order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if directory != "" {
			if err := os.Chdir(directory); err != nil {
				return fmt.Errorf("entering directory %s: %w", directory, err)
			}
		}
		if verbose {
			if err := debug.Init("."); err != nil {
				fmt.Fprintf(os.Stderr, "%s debug log unavailable: %v\n", tui.WarningStyle.Render("!"), err)
			}
			debug.Log("weft %s %s", Version, cmd.Name())
		}
		if !quietFlag && !jsonFlag {
			fmt.Fprintln(os.Stderr, tui.Header(Version, cmd.Name()))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Close()
	},
}

// Execute runs the root command with signal handling. The returned error has
// already stopped the build; the caller maps it to an exit code.
func Execute() error {
	ctx := signal.SetupSignalHandler(context.Background())
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanCmd)

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "file", "f", rulesfile.DefaultFileName, "rules file to load")
	rootCmd.PersistentFlags().StringVarP(&directory, "directory", "C", "", "change to this directory first")
	rootCmd.PersistentFlags().IntVarP(&jobsFlag, "jobs", "j", runtime.NumCPU(), "how many actions run in parallel")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress rule messages")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit JSON output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "write a debug log to .weft-debug.log")
}

// loadWorkflow parses the rules file and builds the workflow. Validation
// warnings print to stderr; errors abort.
func loadWorkflow(opts ...rulesfile.BuildOption) (*workflow.Workflow, error) {
	f, err := rulesfile.ParseFile(rulesFile)
	if err != nil {
		return nil, err
	}

	for _, warn := range rulesfile.Validate(f).Warnings() {
		fmt.Fprintf(os.Stderr, "%s %s\n", tui.WarningStyle.Render("!"), warn.Error())
	}

	wf, err := rulesfile.Build(f, opts...)
	if err != nil {
		return nil, err
	}
	debug.Log("loaded %d rules from %s", len(wf.Rules()), rulesFile)
	return wf, nil
}

// runTargets resolves and runs each requested target in order. Rule names
// run by name; anything else is produced as a file path. No targets means
// the first rule.
func runTargets(ctx context.Context, wf *workflow.Workflow, targets []string, cfg workflow.RunConfig) error {
	if len(targets) == 0 {
		return wf.RunFirst(ctx, cfg)
	}
	for _, target := range targets {
		debug.Log("running target %s", target)
		if wf.HasRule(target) {
			if err := wf.RunNamed(ctx, target, cfg); err != nil {
				return err
			}
			continue
		}
		if err := wf.Produce(ctx, target, cfg); err != nil {
			return err
		}
	}
	return nil
}

// displayTarget names a run for the tracker and the history store.
func displayTarget(wf *workflow.Workflow, targets []string) string {
	if len(targets) > 0 {
		if len(targets) == 1 {
			return targets[0]
		}
		return fmt.Sprintf("%s (+%d more)", targets[0], len(targets)-1)
	}
	if first := wf.First(); first != nil {
		return first.Name()
	}
	return ""
}
