package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRules is returned by RunFirst when the workflow is empty.
var ErrNoRules = errors.New("workflow has no rules")

// DuplicateRuleError reports a second definition of an existing rule name.
type DuplicateRuleError struct {
	Name string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule %s is already defined", e.Name)
}

// MissingRuleError reports a target that no registered rule can produce.
type MissingRuleError struct {
	Target string
}

func (e *MissingRuleError) Error() string {
	return fmt.Sprintf("no rule to produce %s", e.Target)
}

// MissingActionError reports a rule that declares outputs but has no action
// attached, which makes its outputs unproducible.
type MissingActionError struct {
	Rule string
}

func (e *MissingActionError) Error() string {
	return fmt.Sprintf("rule %s declares outputs but has no action", e.Rule)
}

// InconsistentWildcardsError reports an output pattern whose wildcard name
// set differs from the set established by the rule's earlier outputs.
type InconsistentWildcardsError struct {
	Rule    string
	Pattern string
	Want    []string
	Got     []string
}

func (e *InconsistentWildcardsError) Error() string {
	return fmt.Sprintf("output %q of rule %s uses wildcards {%s}, but earlier outputs use {%s}",
		e.Pattern, e.Rule, strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

// UnboundWildcardError reports a template that references a wildcard name
// absent from the binding it is expanded against. It surfaces when an input
// pattern names a wildcard no output declares, when a message template names
// an unknown wildcard, or when a rule with wildcards is invoked directly
// (by name or as the first rule) so that no requested output exists to bind
// them.
type UnboundWildcardError struct {
	Rule     string
	Template string
	Name     string
}

func (e *UnboundWildcardError) Error() string {
	return fmt.Sprintf("rule %s: %q references unbound wildcard {%s}", e.Rule, e.Template, e.Name)
}

// AmbiguousRuleError reports two rules that both produce the same file with
// equal standing.
type AmbiguousRuleError struct {
	File  string
	RuleA string
	RuleB string
}

func (e *AmbiguousRuleError) Error() string {
	return fmt.Sprintf("rules %s and %s both produce %s", e.RuleA, e.RuleB, e.File)
}

// MissingInputError reports input files that do not exist and that no rule
// can provide. Files lists the inputs missing for Rule itself; Upstream
// carries the failures of candidate producer rules that were tried for the
// remaining inputs. Rule is empty when the error aggregates producer probes
// for a requested file rather than the planning of one rule.
type MissingInputError struct {
	Rule     string
	Files    []string
	Upstream []*MissingInputError
}

func (e *MissingInputError) Error() string {
	var b strings.Builder
	b.WriteString(e.header())
	e.writeDetail(&b, 1)
	return b.String()
}

func (e *MissingInputError) header() string {
	if e.Rule == "" {
		return "missing input files"
	}
	return fmt.Sprintf("missing input files for rule %s", e.Rule)
}

func (e *MissingInputError) writeDetail(b *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, f := range e.Files {
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString(f)
	}
	for _, up := range e.Upstream {
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString(up.header())
		up.writeDetail(b, depth+1)
	}
}

// MissingOutputError reports declared outputs that an action completed
// without producing.
type MissingOutputError struct {
	Rule  string
	Files []string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("rule %s did not produce output %s", e.Rule, strings.Join(e.Files, ", "))
}

// ActionFailedError wraps an error returned by a rule's action.
type ActionFailedError struct {
	Rule string
	Err  error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("rule %s failed: %v", e.Rule, e.Err)
}

func (e *ActionFailedError) Unwrap() error { return e.Err }

// CyclicGraphError reports a circular dependency discovered during planning:
// producing the named outputs was requested again before the first request
// finished expanding.
type CyclicGraphError struct {
	Rule    string
	Outputs []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("circular dependency involving rule %s (outputs: %s)",
		e.Rule, strings.Join(e.Outputs, ", "))
}
