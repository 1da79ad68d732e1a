package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/weftsh/weft/pattern"
)

// Invocation carries the concrete paths and wildcard values a job was
// planned with. It is the only state an action receives.
type Invocation struct {
	Rule      string
	Inputs    []string
	Outputs   []string
	Wildcards map[string]string
}

// Action transforms a job's inputs into its outputs. Actions run on worker
// goroutines and must not share mutable state with other actions; the
// context is cancelled when the build is interrupted.
type Action func(ctx context.Context, inv Invocation) error

// Rule binds input path patterns and output path patterns through an action.
// Rules are built up by the loader and must not be mutated once planning has
// started.
type Rule struct {
	name      string
	inputs    []*pattern.Pattern
	outputs   []*pattern.Pattern
	wildcards map[string]bool
	message   string
	action    Action
}

func newRule(name string) *Rule {
	return &Rule{name: name}
}

// Name returns the rule's unique name.
func (r *Rule) Name() string { return r.name }

// AddInputs appends input path patterns. Input patterns may reference any
// subset of the rule's output wildcards; referencing a name outside that set
// fails later, when the pattern is expanded during planning.
func (r *Rule) AddInputs(templates ...string) error {
	for _, tmpl := range templates {
		p, err := pattern.Compile(tmpl)
		if err != nil {
			return err
		}
		r.inputs = append(r.inputs, p)
	}
	return nil
}

// AddOutputs appends output path patterns. Every output of a rule must use
// the same set of wildcard names; the first output establishes the set.
func (r *Rule) AddOutputs(templates ...string) error {
	for _, tmpl := range templates {
		p, err := pattern.Compile(tmpl)
		if err != nil {
			return err
		}
		names := make(map[string]bool, len(p.Names()))
		for _, n := range p.Names() {
			names[n] = true
		}
		if len(r.outputs) == 0 {
			r.wildcards = names
		} else if !sameNameSet(r.wildcards, names) {
			return &InconsistentWildcardsError{
				Rule:    r.name,
				Pattern: tmpl,
				Want:    sortedNames(r.wildcards),
				Got:     sortedNames(names),
			}
		}
		r.outputs = append(r.outputs, p)
	}
	return nil
}

// SetMessage sets the template printed when the rule runs. The template may
// reference the rule's wildcards plus {input} and {output}, which expand to
// the comma-joined concrete path lists.
func (r *Rule) SetMessage(template string) { r.message = template }

// SetAction attaches the callback that produces the rule's outputs.
func (r *Rule) SetAction(a Action) { r.action = a }

// HasAction reports whether an action is attached.
func (r *Rule) HasAction() bool { return r.action != nil }

// HasWildcards reports whether the rule's outputs declare any wildcards.
func (r *Rule) HasWildcards() bool { return len(r.wildcards) > 0 }

// Message returns the raw message template, or "" when none is set.
func (r *Rule) Message() string { return r.message }

// InputPatterns returns the input templates in declaration order.
func (r *Rule) InputPatterns() []string { return patternStrings(r.inputs) }

// OutputPatterns returns the output templates in declaration order.
func (r *Rule) OutputPatterns() []string { return patternStrings(r.outputs) }

// WildcardNames returns the rule's wildcard name set, sorted.
func (r *Rule) WildcardNames() []string { return sortedNames(r.wildcards) }

// IsProducer reports whether any output pattern matches path in full.
func (r *Rule) IsProducer(path string) bool {
	for _, out := range r.outputs {
		if _, ok := out.Match(path); ok {
			return true
		}
	}
	return false
}

// Bind matches path against the rule's output patterns and returns the
// wildcard binding. When several outputs match, the binding with the
// shortest total captured length wins, so narrower captures beat broader
// ones; ties keep the earliest output in declaration order.
func (r *Rule) Bind(path string) (map[string]string, bool) {
	var (
		best    map[string]string
		bestLen int
		found   bool
	)
	for _, out := range r.outputs {
		binding, ok := out.Match(path)
		if !ok {
			continue
		}
		total := 0
		for _, v := range binding {
			total += len(v)
		}
		if !found || total < bestLen {
			best, bestLen, found = binding, total, true
		}
	}
	return best, found
}

// Expand formats every input and output pattern against the binding,
// producing the concrete paths of one job.
func (r *Rule) Expand(binding map[string]string) (inputs, outputs []string, err error) {
	outputs = make([]string, 0, len(r.outputs))
	for _, p := range r.outputs {
		path, err := p.Format(binding)
		if err != nil {
			return nil, nil, r.wrapUnbound(p.String(), err)
		}
		outputs = append(outputs, path)
	}
	inputs = make([]string, 0, len(r.inputs))
	for _, p := range r.inputs {
		path, err := p.Format(binding)
		if err != nil {
			return nil, nil, r.wrapUnbound(p.String(), err)
		}
		inputs = append(inputs, path)
	}
	return inputs, outputs, nil
}

func (r *Rule) wrapUnbound(template string, err error) error {
	var unbound *pattern.UnboundError
	if errors.As(err, &unbound) {
		return &UnboundWildcardError{Rule: r.name, Template: template, Name: unbound.Name}
	}
	return err
}

// IsStale reports whether the rule's outputs need to be regenerated for the
// given concrete paths. A rule without an action is never stale. Otherwise
// the rule is stale when forced, when it declares no outputs (an always-run
// action), when any output is missing, or when the oldest output is not
// strictly newer than the newest existing input. Equal timestamps count as
// stale, so an input produced within the same filesystem timestamp
// granularity still triggers a rebuild.
func (r *Rule) IsStale(inputs, outputs []string, force bool) bool {
	if r.action == nil {
		return false
	}
	if force {
		return true
	}
	if len(outputs) == 0 {
		return true
	}
	var oldest time.Time
	for i, out := range outputs {
		info, err := os.Stat(out)
		if err != nil {
			return true
		}
		if i == 0 || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			// Absent inputs are the planner's concern, not a
			// staleness signal.
			continue
		}
		if !info.ModTime().Before(oldest) {
			return true
		}
	}
	return false
}

// FormatMessage renders the rule's message for one job. Without a custom
// template it falls back to a summary of the job's concrete paths.
func (r *Rule) FormatMessage(inputs, outputs []string, binding map[string]string) (string, error) {
	if r.message == "" {
		return fmt.Sprintf("rule %s:\n\tinput: %s\n\toutput: %s",
			r.name, strings.Join(inputs, ", "), strings.Join(outputs, ", ")), nil
	}
	values := make(map[string]string, len(binding)+2)
	for name, value := range binding {
		values[name] = value
	}
	values["input"] = strings.Join(inputs, ", ")
	values["output"] = strings.Join(outputs, ", ")
	msg, err := pattern.Substitute(r.message, values)
	if err != nil {
		return "", r.wrapUnbound(r.message, err)
	}
	return msg, nil
}

func patternStrings(patterns []*pattern.Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.String()
	}
	return out
}

func sameNameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if !b[name] {
			return false
		}
	}
	return true
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
