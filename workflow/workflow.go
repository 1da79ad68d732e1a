// Package workflow implements a rule-driven build engine. Rules declare how
// output files are produced from input files through wildcard-parameterised
// path patterns; the engine resolves which rule produces a requested file,
// expands the transitive dependencies into a memoised job graph, decides
// which jobs are stale by file presence and modification times, and runs the
// stale jobs in parallel in dependency order.
package workflow

import (
	"context"
	"errors"
	"os"
)

// Workflow is the registry of rules plus the state needed to plan and run
// them. Populate it fully before planning; rules are read-only afterwards.
type Workflow struct {
	rules      map[string]*Rule
	order      []*Rule
	workdirSet bool
}

// New returns an empty workflow.
func New() *Workflow {
	return &Workflow{rules: make(map[string]*Rule)}
}

// AddRule registers a rule under a unique name and returns it for the
// loader to populate.
func (w *Workflow) AddRule(name string) (*Rule, error) {
	if _, ok := w.rules[name]; ok {
		return nil, &DuplicateRuleError{Name: name}
	}
	r := newRule(name)
	w.rules[name] = r
	w.order = append(w.order, r)
	return r, nil
}

// HasRule reports whether name is a registered rule.
func (w *Workflow) HasRule(name string) bool {
	_, ok := w.rules[name]
	return ok
}

// Rule returns the named rule.
func (w *Workflow) Rule(name string) (*Rule, bool) {
	r, ok := w.rules[name]
	return r, ok
}

// Rules returns the registered rules in registration order.
func (w *Workflow) Rules() []*Rule {
	out := make([]*Rule, len(w.order))
	copy(out, w.order)
	return out
}

// First returns the first-registered rule, or nil for an empty workflow.
func (w *Workflow) First() *Rule {
	if len(w.order) == 0 {
		return nil
	}
	return w.order[0]
}

// Last returns the most recently registered rule, or nil for an empty
// workflow.
func (w *Workflow) Last() *Rule {
	if len(w.order) == 0 {
		return nil
	}
	return w.order[len(w.order)-1]
}

// SetWorkdir creates dir if absent and makes it the process working
// directory. Only the first call has any effect.
func (w *Workflow) SetWorkdir(dir string) error {
	if w.workdirSet {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.Chdir(dir); err != nil {
		return err
	}
	w.workdirSet = true
	return nil
}

// CheckRules verifies that every rule declaring outputs has an action
// attached.
func (w *Workflow) CheckRules() error {
	for _, r := range w.order {
		if len(r.outputs) > 0 && r.action == nil {
			return &MissingActionError{Rule: r.name}
		}
	}
	return nil
}

// RunFirst plans and runs the first-registered rule. The rule must declare
// no wildcards, since no requested output exists to bind them against.
func (w *Workflow) RunFirst(ctx context.Context, cfg RunConfig) error {
	first := w.First()
	if first == nil {
		return ErrNoRules
	}
	return w.run(ctx, first, "", cfg.normalized())
}

// RunNamed plans and runs the named rule. Like RunFirst it requires the
// rule to declare no wildcards.
func (w *Workflow) RunNamed(ctx context.Context, name string, cfg RunConfig) error {
	r, ok := w.rules[name]
	if !ok {
		return &MissingRuleError{Target: name}
	}
	return w.run(ctx, r, "", cfg.normalized())
}

// Produce finds the unique rule able to produce path and runs it. Each
// candidate producer is probed with a full planning pass first, so a rule
// whose own inputs cannot be provided does not count; two viable producers
// make the request ambiguous.
func (w *Workflow) Produce(ctx context.Context, path string, cfg RunConfig) error {
	cfg = cfg.normalized()
	producer, err := w.findProducer(path)
	if err != nil {
		cfg.Reporter.OnError(err)
		return err
	}
	return w.run(ctx, producer, path, cfg)
}

// Plan builds the job graph for a target without executing it. A target
// matching a registered rule name plans that rule directly; anything else
// is treated as a file path and resolved through producer probing.
func (w *Workflow) Plan(target string, cfg RunConfig) (*Job, error) {
	if r, ok := w.rules[target]; ok {
		return newPlanner(w, cfg.ForceAll).plan(r, "", cfg.ForceThis)
	}
	producer, err := w.findProducer(target)
	if err != nil {
		return nil, err
	}
	return newPlanner(w, cfg.ForceAll).plan(producer, target, cfg.ForceThis)
}

func (w *Workflow) findProducer(path string) (*Rule, error) {
	var (
		producer *Rule
		failures []*MissingInputError
	)
	for _, r := range w.order {
		if !r.IsProducer(path) {
			continue
		}
		// Probe with a fresh planner: a failed candidate must not
		// leave partial jobs in the memo of the next one.
		if _, err := newPlanner(w, false).plan(r, path, false); err != nil {
			var miss *MissingInputError
			if errors.As(err, &miss) {
				failures = append(failures, miss)
				continue
			}
			return nil, err
		}
		if producer != nil {
			return nil, &AmbiguousRuleError{File: path, RuleA: producer.Name(), RuleB: r.Name()}
		}
		producer = r
	}
	if producer == nil {
		if len(failures) > 0 {
			return nil, &MissingInputError{Upstream: failures}
		}
		return nil, &MissingRuleError{Target: path}
	}
	return producer, nil
}

func (w *Workflow) run(ctx context.Context, r *Rule, requestedOutput string, cfg RunConfig) error {
	target := requestedOutput
	if target == "" {
		target = r.Name()
	}
	cfg.Reporter.OnPlanStart(target)
	p := newPlanner(w, cfg.ForceAll)
	root, err := p.plan(r, requestedOutput, cfg.ForceThis)
	if err != nil {
		cfg.Reporter.OnError(err)
		return err
	}
	cfg.Reporter.OnPlanComplete(target, p.jobs())
	if err := w.execute(ctx, root, cfg); err != nil {
		cfg.Reporter.OnError(err)
		return err
	}
	return nil
}
