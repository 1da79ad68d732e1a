package workflow

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func mustAddRule(t *testing.T, wf *Workflow, name string, inputs, outputs []string, action Action) *Rule {
	t.Helper()
	r, err := wf.AddRule(name)
	if err != nil {
		t.Fatalf("AddRule(%s): %v", name, err)
	}
	if err := r.AddInputs(inputs...); err != nil {
		t.Fatalf("AddInputs(%s): %v", name, err)
	}
	if err := r.AddOutputs(outputs...); err != nil {
		t.Fatalf("AddOutputs(%s): %v", name, err)
	}
	if action != nil {
		r.SetAction(action)
	}
	return r
}

func TestPlanChain(t *testing.T) {
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "raw", nil,
		[]string{filepath.Join(dir, "data/{sample}.raw")}, nopAction)
	mustAddRule(t, wf, "clean",
		[]string{filepath.Join(dir, "data/{sample}.raw")},
		[]string{filepath.Join(dir, "data/{sample}.clean")}, nopAction)

	root, err := wf.Plan(filepath.Join(dir, "data/s1.clean"), RunConfig{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if root.Rule.Name() != "clean" {
		t.Errorf("root rule = %s, want clean", root.Rule.Name())
	}
	if root.Wildcards["sample"] != "s1" {
		t.Errorf(`root wildcards = %v, want sample=s1`, root.Wildcards)
	}
	if !root.NeedsRun {
		t.Error("root.NeedsRun = false, want true")
	}
	if len(root.Deps) != 1 {
		t.Fatalf("root has %d deps, want 1", len(root.Deps))
	}
	child := root.Deps[0]
	if child.Rule.Name() != "raw" {
		t.Errorf("child rule = %s, want raw", child.Rule.Name())
	}
	if !child.NeedsRun {
		t.Error("child.NeedsRun = false, want true")
	}
	if want := filepath.Join(dir, "data/s1.raw"); child.Outputs[0] != want {
		t.Errorf("child output = %s, want %s", child.Outputs[0], want)
	}
}

func TestPlanDiamondSharesJobs(t *testing.T) {
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "base", nil,
		[]string{filepath.Join(dir, "{x}.base")}, nopAction)
	mustAddRule(t, wf, "left",
		[]string{filepath.Join(dir, "{x}.base")},
		[]string{filepath.Join(dir, "{x}.left")}, nopAction)
	mustAddRule(t, wf, "right",
		[]string{filepath.Join(dir, "{x}.base")},
		[]string{filepath.Join(dir, "{x}.right")}, nopAction)
	mustAddRule(t, wf, "top",
		[]string{filepath.Join(dir, "{x}.left"), filepath.Join(dir, "{x}.right")},
		[]string{filepath.Join(dir, "{x}.top")}, nopAction)

	root, err := wf.Plan(filepath.Join(dir, "a.top"), RunConfig{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if got := len(root.Flatten()); got != 4 {
		t.Errorf("plan has %d jobs, want 4", got)
	}
	if len(root.Deps) != 2 {
		t.Fatalf("root has %d deps, want 2", len(root.Deps))
	}
	leftJob, rightJob := root.Deps[0], root.Deps[1]
	if len(leftJob.Deps) != 1 || len(rightJob.Deps) != 1 {
		t.Fatal("left and right must each depend on the base job")
	}
	if leftJob.Deps[0] != rightJob.Deps[0] {
		t.Error("diamond dependency planned as two distinct jobs, want one shared job")
	}
}

func TestPlanAmbiguousProducers(t *testing.T) {
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "one", nil,
		[]string{filepath.Join(dir, "out/{x}.txt")}, nopAction)
	mustAddRule(t, wf, "two", nil,
		[]string{filepath.Join(dir, "out/{x}.txt")}, nopAction)

	_, err := wf.Plan(filepath.Join(dir, "out/a.txt"), RunConfig{})
	var ambiguous *AmbiguousRuleError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("Plan error = %v, want AmbiguousRuleError", err)
	}
	if ambiguous.RuleA != "one" || ambiguous.RuleB != "two" {
		t.Errorf("ambiguous rules = %s, %s; want one, two", ambiguous.RuleA, ambiguous.RuleB)
	}
}

func TestPlanAmbiguousInputProducers(t *testing.T) {
	// Ambiguity must also surface while expanding the inputs of a
	// downstream rule, not just for the requested file itself.
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "one", nil,
		[]string{filepath.Join(dir, "mid/{x}.txt")}, nopAction)
	mustAddRule(t, wf, "two", nil,
		[]string{filepath.Join(dir, "mid/{x}.txt")}, nopAction)
	mustAddRule(t, wf, "final",
		[]string{filepath.Join(dir, "mid/a.txt")},
		[]string{filepath.Join(dir, "final.txt")}, nopAction)

	_, err := wf.Plan("final", RunConfig{})
	var ambiguous *AmbiguousRuleError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("Plan error = %v, want AmbiguousRuleError", err)
	}
	if want := filepath.Join(dir, "mid/a.txt"); ambiguous.File != want {
		t.Errorf("ambiguous file = %s, want %s", ambiguous.File, want)
	}
}

func TestPlanMissingInput(t *testing.T) {
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "needy",
		[]string{filepath.Join(dir, "in/x.txt")},
		[]string{filepath.Join(dir, "out/x.txt")}, nopAction)

	_, err := wf.Plan("needy", RunConfig{})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("Plan error = %v, want MissingInputError", err)
	}
	if missing.Rule != "needy" {
		t.Errorf("Rule = %q, want needy", missing.Rule)
	}
	if len(missing.Files) != 1 || missing.Files[0] != filepath.Join(dir, "in/x.txt") {
		t.Errorf("Files = %v, want the absent input", missing.Files)
	}
}

func TestPlanMissingInputAggregatesUpstream(t *testing.T) {
	// c depends on b depends on a, and a's input does not exist. The
	// failure must climb the chain, naming the originating rule.
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "a",
		[]string{filepath.Join(dir, "src/{x}.src")},
		[]string{filepath.Join(dir, "out/{x}.a")}, nopAction)
	mustAddRule(t, wf, "b",
		[]string{filepath.Join(dir, "out/{x}.a")},
		[]string{filepath.Join(dir, "fin/{x}.b")}, nopAction)

	_, err := wf.Plan(filepath.Join(dir, "fin/t.b"), RunConfig{})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("Plan error = %v, want MissingInputError", err)
	}
	if missing.Rule != "" {
		t.Errorf("aggregate Rule = %q, want empty", missing.Rule)
	}
	if len(missing.Upstream) != 1 {
		t.Fatalf("aggregate has %d upstream errors, want 1", len(missing.Upstream))
	}
	viaB := missing.Upstream[0]
	if viaB.Rule != "b" {
		t.Errorf("upstream rule = %q, want b", viaB.Rule)
	}
	if len(viaB.Files) != 0 {
		t.Errorf("b.Files = %v, want none: its input is explained by a's failure", viaB.Files)
	}
	if len(viaB.Upstream) != 1 || viaB.Upstream[0].Rule != "a" {
		t.Fatalf("b.Upstream = %v, want a's failure", viaB.Upstream)
	}
	viaA := viaB.Upstream[0]
	if want := filepath.Join(dir, "src/t.src"); len(viaA.Files) != 1 || viaA.Files[0] != want {
		t.Errorf("a.Files = %v, want [%s]", viaA.Files, want)
	}
}

func TestPlanCycle(t *testing.T) {
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "a",
		[]string{filepath.Join(dir, "{x}.b")},
		[]string{filepath.Join(dir, "{x}.a")}, nopAction)
	mustAddRule(t, wf, "b",
		[]string{filepath.Join(dir, "{x}.a")},
		[]string{filepath.Join(dir, "{x}.b")}, nopAction)

	_, err := wf.Plan(filepath.Join(dir, "t.a"), RunConfig{})
	var cyclic *CyclicGraphError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Plan error = %v, want CyclicGraphError", err)
	}
}

func TestPlanExcludesSelfAsProducer(t *testing.T) {
	// The rule's own output pattern matches one of its inputs; the file
	// exists on disk, so planning must pick it up instead of recursing
	// into the rule itself.
	dir := t.TempDir()
	wf := New()
	mustAddRule(t, wf, "gen",
		[]string{filepath.Join(dir, "raw.dat")},
		[]string{filepath.Join(dir, "{x}.dat")}, nopAction)
	writeFile(t, filepath.Join(dir, "raw.dat"), "seed")

	root, err := wf.Plan(filepath.Join(dir, "out.dat"), RunConfig{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := len(root.Flatten()); got != 1 {
		t.Errorf("plan has %d jobs, want 1", got)
	}
}

func TestPlanUpToDate(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "data/s1.raw")
	clean := filepath.Join(dir, "data/s1.clean")
	writeFile(t, raw, "raw")
	writeFile(t, clean, "clean")
	base := time.Now().Add(-time.Hour)
	setMtime(t, raw, base)
	setMtime(t, clean, base.Add(time.Minute))

	wf := New()
	mustAddRule(t, wf, "raw", nil,
		[]string{filepath.Join(dir, "data/{sample}.raw")}, nopAction)
	mustAddRule(t, wf, "clean",
		[]string{filepath.Join(dir, "data/{sample}.raw")},
		[]string{filepath.Join(dir, "data/{sample}.clean")}, nopAction)

	root, err := wf.Plan(clean, RunConfig{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if root.NeedsRun {
		t.Error("root.NeedsRun = true for an up-to-date chain, want false")
	}
	if len(root.Deps) != 0 {
		t.Errorf("root.Deps = %d jobs, want 0: an up-to-date producer is no dependency", len(root.Deps))
	}
}

func TestPlanForceFlags(t *testing.T) {
	tests := []struct {
		name        string
		cfg         RunConfig
		rootNeeds   bool
		childInDeps bool
	}{
		{name: "no force", cfg: RunConfig{}, rootNeeds: false, childInDeps: false},
		{name: "force this", cfg: RunConfig{ForceThis: true}, rootNeeds: true, childInDeps: false},
		{name: "force all", cfg: RunConfig{ForceAll: true}, rootNeeds: true, childInDeps: true},
		{
			name:        "force this and all",
			cfg:         RunConfig{ForceThis: true, ForceAll: true},
			rootNeeds:   true,
			childInDeps: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			raw := filepath.Join(dir, "data/s1.raw")
			clean := filepath.Join(dir, "data/s1.clean")
			writeFile(t, raw, "raw")
			writeFile(t, clean, "clean")
			base := time.Now().Add(-time.Hour)
			setMtime(t, raw, base)
			setMtime(t, clean, base.Add(time.Minute))

			wf := New()
			mustAddRule(t, wf, "raw", nil,
				[]string{filepath.Join(dir, "data/{sample}.raw")}, nopAction)
			mustAddRule(t, wf, "clean",
				[]string{filepath.Join(dir, "data/{sample}.raw")},
				[]string{filepath.Join(dir, "data/{sample}.clean")}, nopAction)

			root, err := wf.Plan(clean, tt.cfg)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if root.NeedsRun != tt.rootNeeds {
				t.Errorf("root.NeedsRun = %v, want %v", root.NeedsRun, tt.rootNeeds)
			}
			if got := len(root.Deps) == 1; got != tt.childInDeps {
				t.Errorf("child in deps = %v, want %v", got, tt.childInDeps)
			}
		})
	}
}

func TestPlanMessageFormatting(t *testing.T) {
	dir := t.TempDir()
	wf := New()
	r := mustAddRule(t, wf, "fetch", nil,
		[]string{filepath.Join(dir, "{name}.bin")}, nopAction)
	r.SetMessage("fetching {name}")

	root, err := wf.Plan(filepath.Join(dir, "tool.bin"), RunConfig{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if root.Message != "fetching tool" {
		t.Errorf("Message = %q, want %q", root.Message, "fetching tool")
	}
}
