package workflow

import (
	"errors"
	"os"
	"strings"
)

// Job is a planned invocation of a rule with a fixed wildcard binding.
// Jobs are written only by the planner; the scheduler treats them as
// read-only.
type Job struct {
	Rule      *Rule
	Inputs    []string
	Outputs   []string
	Wildcards map[string]string
	Message   string

	// NeedsRun marks jobs whose action must be invoked. Jobs planned as
	// up-to-date stay in the graph so shared dependencies keep a single
	// job object, but the scheduler completes them without running
	// anything.
	NeedsRun bool

	// Deps are the jobs that must complete before this one starts. Only
	// children that themselves need to run are recorded.
	Deps []*Job
}

// Flatten returns every job reachable from j, dependencies before
// dependents. A job shared by several parents appears once.
func (j *Job) Flatten() []*Job {
	var (
		jobs []*Job
		seen = make(map[*Job]bool)
		walk func(*Job)
	)
	walk = func(job *Job) {
		if seen[job] {
			return
		}
		seen[job] = true
		for _, dep := range job.Deps {
			walk(dep)
		}
		jobs = append(jobs, job)
	}
	walk(j)
	return jobs
}

// jobKey identifies a job for memoisation. Two requests that expand to the
// same rule and concrete outputs must share one job.
type jobKey struct {
	rule    *Rule
	outputs string
}

func keyFor(r *Rule, outputs []string) jobKey {
	return jobKey{rule: r, outputs: strings.Join(outputs, "\x00")}
}

type planner struct {
	wf       *Workflow
	forceAll bool

	// memo shares jobs across diamond dependencies; inFlight tracks the
	// current expansion stack so a request that reaches itself again is
	// reported as a cycle instead of recursing forever.
	memo     map[jobKey]*Job
	inFlight map[jobKey]bool
}

func newPlanner(wf *Workflow, forceAll bool) *planner {
	return &planner{
		wf:       wf,
		forceAll: forceAll,
		memo:     make(map[jobKey]*Job),
		inFlight: make(map[jobKey]bool),
	}
}

// jobs returns the number of jobs planned so far.
func (p *planner) jobs() int { return len(p.memo) }

// plan expands a rule into a job for the requested output, recursively
// planning producers for each input. An empty requestedOutput plans the
// rule's patterns verbatim, which requires the rule to have no wildcards.
func (p *planner) plan(r *Rule, requestedOutput string, forceThis bool) (*Job, error) {
	binding := map[string]string{}
	if requestedOutput != "" {
		b, ok := r.Bind(requestedOutput)
		if !ok {
			return nil, &MissingRuleError{Target: requestedOutput}
		}
		binding = b
	}
	inputs, outputs, err := r.Expand(binding)
	if err != nil {
		return nil, err
	}

	key := keyFor(r, outputs)
	if job, ok := p.memo[key]; ok {
		return job, nil
	}
	if p.inFlight[key] {
		return nil, &CyclicGraphError{Rule: r.Name(), Outputs: outputs}
	}
	p.inFlight[key] = true
	defer delete(p.inFlight, key)

	var (
		deps     []*Job
		depSeen  = make(map[*Job]bool)
		produced = make(map[string]*Rule)
		failures []*MissingInputError
		failed   = make(map[string]bool)
	)
	for _, in := range inputs {
		for _, candidate := range p.wf.order {
			if candidate == r || !candidate.IsProducer(in) {
				continue
			}
			child, err := p.plan(candidate, in, false)
			if err != nil {
				var miss *MissingInputError
				if errors.As(err, &miss) {
					// The candidate cannot provide this input;
					// remember why in case nobody else can either.
					failures = append(failures, miss)
					failed[in] = true
					continue
				}
				return nil, err
			}
			if prev, ok := produced[in]; ok {
				return nil, &AmbiguousRuleError{File: in, RuleA: prev.Name(), RuleB: candidate.Name()}
			}
			produced[in] = candidate
			if child.NeedsRun && !depSeen[child] {
				depSeen[child] = true
				deps = append(deps, child)
			}
		}
	}

	// Inputs nobody produces must already exist on disk.
	var (
		missing     []string
		missingSeen = make(map[string]bool)
		incomplete  bool
	)
	for _, in := range inputs {
		if produced[in] != nil || missingSeen[in] {
			continue
		}
		if _, err := os.Stat(in); err != nil {
			missingSeen[in] = true
			incomplete = true
			if !failed[in] {
				// Inputs whose candidate producers failed are
				// described by the upstream errors instead.
				missing = append(missing, in)
			}
		}
	}
	if incomplete {
		return nil, &MissingInputError{Rule: r.Name(), Files: missing, Upstream: failures}
	}

	message, err := r.FormatMessage(inputs, outputs, binding)
	if err != nil {
		return nil, err
	}

	job := &Job{
		Rule:      r,
		Inputs:    inputs,
		Outputs:   outputs,
		Wildcards: binding,
		Message:   message,
		NeedsRun:  forceThis || p.forceAll || len(deps) > 0 || r.IsStale(inputs, outputs, false),
		Deps:      deps,
	}
	p.memo[key] = job
	return job, nil
}
