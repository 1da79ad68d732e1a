package workflow

import (
	"strings"
	"testing"
)

func TestMissingInputErrorRendering(t *testing.T) {
	err := &MissingInputError{
		Rule:  "align",
		Files: []string{"ref.fa"},
		Upstream: []*MissingInputError{
			{Rule: "trim", Files: []string{"reads/s1.fastq"}},
		},
	}

	msg := err.Error()
	wants := []string{
		"missing input files for rule align",
		"ref.fa",
		"missing input files for rule trim",
		"reads/s1.fastq",
	}
	for _, want := range wants {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should contain %q", msg, want)
		}
	}
}

func TestMissingInputErrorAggregateHeader(t *testing.T) {
	err := &MissingInputError{
		Upstream: []*MissingInputError{{Rule: "a", Files: []string{"x"}}},
	}
	if strings.Contains(err.Error(), "for rule") && !strings.Contains(err.Error(), "for rule a") {
		t.Errorf("aggregate header should not name a rule: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "missing input files") {
		t.Errorf("aggregate error = %q, want missing input header", err.Error())
	}
}

func TestInconsistentWildcardsErrorMessage(t *testing.T) {
	err := &InconsistentWildcardsError{
		Rule:    "split",
		Pattern: "out/{a}.txt",
		Want:    []string{"a", "b"},
		Got:     []string{"a"},
	}
	msg := err.Error()
	if !strings.Contains(msg, "split") || !strings.Contains(msg, "out/{a}.txt") {
		t.Errorf("error %q should name the rule and the pattern", msg)
	}
}
