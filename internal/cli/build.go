package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/weftsh/weft/internal/debug"
	"github.com/weftsh/weft/internal/lock"
	"github.com/weftsh/weft/internal/output"
	"github.com/weftsh/weft/internal/persistence"
	"github.com/weftsh/weft/internal/preflight"
	"github.com/weftsh/weft/internal/tui"
	"github.com/weftsh/weft/progress"
	"github.com/weftsh/weft/rulesfile"
	"github.com/weftsh/weft/workflow"
)

var (
	dryRun   bool
	force    bool
	forceAll bool
)

var buildCmd = &cobra.Command{
	Use:   "build [target...]",
	Short: "Build targets from the rules file",
	Long: `Build runs the rules needed to bring the requested targets up to date.
A target naming a rule runs that rule; any other target is treated as a file
path and built by the unique rule able to produce it. Without targets the
first rule in the rules file runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), args)
	},
}

func init() {
	buildCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "plan and print messages without running actions")
	buildCmd.Flags().BoolVar(&force, "force", false, "run the requested rule even if up to date")
	buildCmd.Flags().BoolVar(&forceAll, "force-all", false, "run every required rule even if up to date")
}

func runBuild(ctx context.Context, targets []string) error {
	useTUI := !dryRun && !quietFlag && !jsonFlag &&
		isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stderr.Fd())

	var buildOpts []rulesfile.BuildOption
	if useTUI {
		buildOpts = append(buildOpts, rulesfile.WithCapturedOutput())
	}
	wf, err := loadWorkflow(buildOpts...)
	if err != nil {
		return err
	}

	if err := preflight.Check("."); err != nil {
		return err
	}

	collector := progress.NewCollector()
	cfg := workflow.RunConfig{
		DryRun:    dryRun,
		ForceThis: force,
		ForceAll:  forceAll,
		Quiet:     quietFlag,
		Jobs:      jobsFlag,
		Reporter:  collector,
	}
	if jsonFlag {
		cfg.Output = io.Discard
	}

	var store *persistence.Store
	if !dryRun {
		release, lockErr := lock.Acquire(".")
		if lockErr != nil {
			return lockErr
		}
		defer release()

		store, err = persistence.Open(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s run history unavailable: %v\n", tui.WarningStyle.Render("!"), err)
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	target := displayTarget(wf, targets)
	if useTUI {
		err = runWithTracker(ctx, wf, targets, target, cfg)
	} else {
		err = runTargets(ctx, wf, targets, cfg)
	}

	summary := collector.Summary()
	summary.Target = target
	recordRun(store, summary, err)

	switch {
	case jsonFlag:
		if jsonErr := output.FormatSummaryJSON(os.Stdout, summary, runStatus(err)); jsonErr != nil {
			return jsonErr
		}
		if err != nil {
			return errSilent{err}
		}
	case err != nil:
		return err
	case !useTUI && !quietFlag:
		// The tracker already rendered its completion view.
		output.BuildSummary(os.Stderr, summary)
	}
	return nil
}

// runWithTracker drives the build under the live TUI: the engine runs on a
// background goroutine, events stream in as messages, and quitting the
// tracker cancels the build.
func runWithTracker(ctx context.Context, wf *workflow.Workflow, targets []string, target string, cfg workflow.RunConfig) error {
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewBuildModel(target)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	cfg.Reporter = progress.Multi(cfg.Reporter, tui.NewReporter(program.Send))
	cfg.Output = tui.NewLogWriter(program.Send)

	started := time.Now()
	done := make(chan error, 1)
	go func() {
		err := runTargets(buildCtx, wf, targets, cfg)
		done <- err
		program.Send(tui.DoneMsg{Err: err, Elapsed: time.Since(started)})
	}()

	if _, runErr := program.Run(); runErr != nil {
		debug.Log("tracker exited: %v", runErr)
	}
	if model.Cancelled() {
		cancel()
		<-done
		return errors.New("build cancelled")
	}
	return <-done
}

func recordRun(store *persistence.Store, summary progress.Summary, err error) {
	if store == nil {
		return
	}
	if _, saveErr := store.SaveRun(summary, runStatus(err)); saveErr != nil {
		fmt.Fprintf(os.Stderr, "%s recording run: %v\n", tui.WarningStyle.Render("!"), saveErr)
	}
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return persistence.StatusSucceeded
	case errors.Is(err, context.Canceled):
		return persistence.StatusCancelled
	default:
		return persistence.StatusFailed
	}
}

// errSilent wraps an error whose detail already reached the user through the
// JSON summary; the exit edge prints nothing more for it.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }
func (e errSilent) Unwrap() error { return e.err }

// Silent reports whether the exit edge should suppress err's message.
func Silent(err error) bool {
	var s errSilent
	return errors.As(err, &s)
}
