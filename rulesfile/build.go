package rulesfile

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/weftsh/weft/remote"
	"github.com/weftsh/weft/shell"
	"github.com/weftsh/weft/workflow"
)

// BuildOption adjusts how a parsed file becomes a workflow.
type BuildOption func(*builder)

// WithRemoteClient replaces the HTTP client used by fetch rules.
func WithRemoteClient(c *remote.Client) BuildOption {
	return func(b *builder) {
		if c != nil {
			b.client = c
		}
	}
}

// WithCapturedOutput keeps shell action output captured instead of
// streaming it to stderr. Set when a TUI owns the terminal.
func WithCapturedOutput() BuildOption {
	return func(b *builder) {
		b.captured = true
	}
}

type builder struct {
	client   *remote.Client
	captured bool
}

// Build turns a parsed rules file into an executable workflow: the workdir
// is applied, glob inputs expand against it, and shell or fetch actions
// attach to their rules. Validation problems of error severity abort the
// build; warnings do not.
func Build(f *File, opts ...BuildOption) (*workflow.Workflow, error) {
	b := &builder{client: remote.NewClient()}
	for _, opt := range opts {
		opt(b)
	}

	if errs := Validate(f); errs.HasErrors() {
		return nil, errs.Errors()
	}

	wf := workflow.New()
	if f.Workdir != "" {
		if err := wf.SetWorkdir(f.Workdir); err != nil {
			return nil, fmt.Errorf("entering workdir %s: %w", f.Workdir, err)
		}
	}

	for _, spec := range f.Rules {
		if spec == nil {
			continue
		}
		if err := b.addRule(wf, spec); err != nil {
			return nil, err
		}
	}

	if err := wf.CheckRules(); err != nil {
		return nil, err
	}
	return wf, nil
}

func (b *builder) addRule(wf *workflow.Workflow, spec *RuleSpec) error {
	r, err := wf.AddRule(spec.Name)
	if err != nil {
		return err
	}

	// Outputs first: they establish the rule's wildcard set.
	outputs, err := stringOrList(spec.Output)
	if err != nil {
		return fmt.Errorf("rule %s: output: %w", spec.Name, err)
	}
	if err := r.AddOutputs(outputs...); err != nil {
		return err
	}

	entries, err := inputList(spec.Input)
	if err != nil {
		return fmt.Errorf("rule %s: input: %w", spec.Name, err)
	}
	for _, entry := range entries {
		if entry.isGlob {
			matches, globErr := expandGlob(entry.text)
			if globErr != nil {
				return fmt.Errorf("rule %s: glob %s: %w", spec.Name, entry.text, globErr)
			}
			if err := r.AddInputs(matches...); err != nil {
				return err
			}
			continue
		}
		if err := r.AddInputs(entry.text); err != nil {
			return err
		}
	}

	if spec.Message != "" {
		r.SetMessage(spec.Message)
	}

	switch {
	case spec.Shell != "" && b.captured:
		r.SetAction(shell.CapturedAction(spec.Shell))
	case spec.Shell != "":
		r.SetAction(shell.Action(spec.Shell))
	case spec.Fetch != "":
		r.SetAction(b.client.Action(spec.Fetch))
	}
	return nil
}

// expandGlob resolves a glob pattern against the working directory. Matches
// come back sorted so rule inputs stay deterministic.
func expandGlob(globPattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS("."), globPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
