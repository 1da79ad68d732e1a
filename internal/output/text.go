// Package output renders plans, rule listings, run history and build
// summaries as text or JSON for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/weftsh/weft/internal/persistence"
	"github.com/weftsh/weft/internal/tui"
	"github.com/weftsh/weft/internal/util"
	"github.com/weftsh/weft/progress"
	"github.com/weftsh/weft/workflow"
)

// PlanTree writes the job graph rooted at root as an indented tree,
// dependencies under their dependents. Shared jobs repeat in the rendering
// but are marked up to date or pending exactly once per rule.
func PlanTree(w io.Writer, root *workflow.Job) {
	writeTree(w, root, "", true)
}

func writeTree(w io.Writer, job *workflow.Job, prefix string, last bool) {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}
	if prefix == "" && last {
		connector = ""
		childPrefix = ""
	}

	state := tui.MutedStyle.Render("up to date")
	if job.NeedsRun {
		state = tui.WarningStyle.Render("pending")
	}
	target := job.Rule.Name()
	if len(job.Outputs) > 0 {
		target = strings.Join(job.Outputs, ", ")
	}
	fmt.Fprintf(w, "%s%s%s %s %s\n", prefix, connector,
		tui.PrimaryStyle.Render(target), tui.MutedStyle.Render("["+job.Rule.Name()+"]"), state)

	for i, dep := range job.Deps {
		writeTree(w, dep, childPrefix, i == len(job.Deps)-1)
	}
}

// RulesList writes the registered rules in registration order.
func RulesList(w io.Writer, rules []*workflow.Rule) {
	for _, r := range rules {
		fmt.Fprintln(w, tui.BoldPrimaryStyle.Render(r.Name()))
		if in := r.InputPatterns(); len(in) > 0 {
			fmt.Fprintf(w, "  %s %s\n", tui.MutedStyle.Render("input:"), strings.Join(in, ", "))
		}
		if out := r.OutputPatterns(); len(out) > 0 {
			fmt.Fprintf(w, "  %s %s\n", tui.MutedStyle.Render("output:"), strings.Join(out, ", "))
		}
		if names := r.WildcardNames(); len(names) > 0 {
			fmt.Fprintf(w, "  %s {%s}\n", tui.MutedStyle.Render("wildcards:"), strings.Join(names, "}, {"))
		}
		if !r.HasAction() {
			fmt.Fprintf(w, "  %s\n", tui.HintStyle.Render("no action"))
		}
	}
}

// RunsTable writes recent runs, newest first.
func RunsTable(w io.Writer, runs []*persistence.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, tui.MutedStyle.Render("no recorded runs"))
		return
	}
	for _, run := range runs {
		icon := tui.StatusIcon(run.Status == persistence.StatusSucceeded)
		elapsed := run.FinishedAt.Sub(run.StartedAt)
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			icon,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			tui.PrimaryStyle.Render(run.Target),
			tui.MutedStyle.Render(fmt.Sprintf("%d run, %d skipped", run.JobsRun, run.JobsSkipped)),
			tui.MutedStyle.Render(util.FormatDurationCompact(elapsed)))
		if run.Error != "" {
			fmt.Fprintf(w, "  %s %s\n", tui.ErrorStyle.Render("error:"), firstLine(run.Error))
		}
	}
}

// BuildSummary writes the one-line outcome of a finished build.
func BuildSummary(w io.Writer, s progress.Summary) {
	elapsed := util.FormatDurationCompact(s.Elapsed)
	if s.Err != nil {
		fmt.Fprintln(w, tui.ExitError(fmt.Sprintf("Build failed after %s", elapsed)))
		return
	}
	if s.Ran == 0 {
		fmt.Fprintln(w, tui.ExitSuccess(fmt.Sprintf("%s is up to date", s.Target)))
		return
	}
	fmt.Fprintln(w, tui.ExitSuccess(fmt.Sprintf("Built %s (%s, %s)",
		s.Target, countJobs(s.Ran), elapsed)))
}

func countJobs(n int) string {
	if n == 1 {
		return "1 job"
	}
	return fmt.Sprintf("%d jobs", n)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
