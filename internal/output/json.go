package output

import (
	"encoding/json"
	"io"

	"github.com/weftsh/weft/internal/persistence"
	"github.com/weftsh/weft/progress"
	"github.com/weftsh/weft/workflow"
)

// JSONJob is one job in a JSON-rendered plan.
type JSONJob struct {
	Rule      string            `json:"rule"`
	Inputs    []string          `json:"inputs,omitempty"`
	Outputs   []string          `json:"outputs,omitempty"`
	Wildcards map[string]string `json:"wildcards,omitempty"`
	NeedsRun  bool              `json:"needs_run"`
	Deps      []*JSONJob        `json:"deps,omitempty"`
}

// JSONSummary is a finished build in JSON form.
type JSONSummary struct {
	Target      string           `json:"target"`
	Status      string           `json:"status"`
	JobsPlanned int              `json:"jobs_planned"`
	JobsRun     int              `json:"jobs_run"`
	JobsSkipped int              `json:"jobs_skipped"`
	Error       string           `json:"error,omitempty"`
	ElapsedMS   int64            `json:"elapsed_ms"`
	Jobs        []JSONSummaryJob `json:"jobs,omitempty"`
}

// JSONSummaryJob is one job outcome inside a JSONSummary.
type JSONSummaryJob struct {
	Rule       string   `json:"rule"`
	Outputs    []string `json:"outputs,omitempty"`
	Status     string   `json:"status"`
	DurationMS int64    `json:"duration_ms"`
}

// FormatPlanJSON writes the job graph rooted at root as indented JSON.
func FormatPlanJSON(w io.Writer, root *workflow.Job) error {
	return encode(w, planJob(root))
}

func planJob(job *workflow.Job) *JSONJob {
	out := &JSONJob{
		Rule:      job.Rule.Name(),
		Inputs:    job.Inputs,
		Outputs:   job.Outputs,
		Wildcards: job.Wildcards,
		NeedsRun:  job.NeedsRun,
	}
	for _, dep := range job.Deps {
		out.Deps = append(out.Deps, planJob(dep))
	}
	return out
}

// JSONRule is one rule in a JSON-rendered registry listing.
type JSONRule struct {
	Name      string   `json:"name"`
	Inputs    []string `json:"inputs,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
	Wildcards []string `json:"wildcards,omitempty"`
	Message   string   `json:"message,omitempty"`
	HasAction bool     `json:"has_action"`
}

// FormatRulesJSON writes the registered rules as indented JSON.
func FormatRulesJSON(w io.Writer, rules []*workflow.Rule) error {
	out := make([]JSONRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, JSONRule{
			Name:      r.Name(),
			Inputs:    r.InputPatterns(),
			Outputs:   r.OutputPatterns(),
			Wildcards: r.WildcardNames(),
			Message:   r.Message(),
			HasAction: r.HasAction(),
		})
	}
	return encode(w, out)
}

// FormatRunsJSON writes recent runs as indented JSON.
func FormatRunsJSON(w io.Writer, runs []*persistence.Run) error {
	if runs == nil {
		runs = []*persistence.Run{}
	}
	return encode(w, runs)
}

// FormatSummaryJSON writes a finished build as indented JSON.
func FormatSummaryJSON(w io.Writer, s progress.Summary, status string) error {
	out := JSONSummary{
		Target:      s.Target,
		Status:      status,
		JobsPlanned: s.Planned,
		JobsRun:     s.Ran,
		JobsSkipped: s.Skipped,
		ElapsedMS:   s.Elapsed.Milliseconds(),
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	for _, rec := range s.Records {
		out.Jobs = append(out.Jobs, JSONSummaryJob{
			Rule:       rec.Rule,
			Outputs:    rec.Outputs,
			Status:     string(rec.Status),
			DurationMS: rec.Duration.Milliseconds(),
		})
	}
	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
