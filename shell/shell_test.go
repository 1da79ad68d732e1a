package shell

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/weftsh/weft/pattern"
	"github.com/weftsh/weft/workflow"
)

// requireShell skips the test when no sh interpreter is available.
func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("Skipping test: sh not found in PATH")
	}
}

// TestRun_CapturesOutput tests that stdout and stderr are captured
// separately.
func TestRun_CapturesOutput(t *testing.T) {
	requireShell(t)

	res, err := Run(context.Background(), &RunConfig{
		Script: "echo front; echo back >&2",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if got := strings.TrimSpace(res.Stdout); got != "front" {
		t.Errorf("Stdout = %q, want %q", got, "front")
	}
	if got := strings.TrimSpace(res.Stderr); got != "back" {
		t.Errorf("Stderr = %q, want %q", got, "back")
	}
	if res.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", res.Duration)
	}
}

// TestRun_ExitCode tests that non-zero exit statuses are reported through
// the result rather than as errors.
func TestRun_ExitCode(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name   string
		script string
		want   int
	}{
		{name: "success", script: "true", want: 0},
		{name: "failure", script: "exit 3", want: 3},
		{name: "last command wins", script: "false; true", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), &RunConfig{Script: tt.script})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.ExitCode != tt.want {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.want)
			}
		})
	}
}

// TestRun_EmptyScript tests that a blank script is rejected.
func TestRun_EmptyScript(t *testing.T) {
	if _, err := Run(context.Background(), &RunConfig{Script: "  \n"}); err == nil {
		t.Fatal("Run() error = nil, want error for empty script")
	}
}

// TestRun_WorkDir tests that the script runs in the configured directory.
func TestRun_WorkDir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	res, err := Run(context.Background(), &RunConfig{Script: "pwd", WorkDir: dir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", dir, err)
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", res.Stdout, err)
	}
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

// TestRun_Environment tests that configured variables reach the script.
func TestRun_Environment(t *testing.T) {
	requireShell(t)

	res, err := Run(context.Background(), &RunConfig{
		Script: `printf '%s' "$WEFT_TEST_TOKEN"`,
		Env:    []string{"WEFT_TEST_TOKEN=sesame"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "sesame" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "sesame")
	}
}

// TestRun_ContextCancellation tests that a cancelled context terminates the
// script promptly and surfaces the context error.
func TestRun_ContextCancellation(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, &RunConfig{Script: "sleep 30"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v, expected prompt termination", elapsed)
	}
}

// TestAction_SubstitutesPlaceholders tests that {input}, {output} and
// wildcard names expand before the script runs.
func TestAction_SubstitutesPlaceholders(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	act := Action(`printf '%s' 'in={input} w={sample}' > {output}`)
	err := act(context.Background(), workflow.Invocation{
		Rule:      "render",
		Inputs:    []string{"a.txt", "b.txt"},
		Outputs:   []string{out},
		Wildcards: map[string]string{"sample": "s1"},
	})
	if err != nil {
		t.Fatalf("action error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "in=a.txt b.txt w=s1"
	if string(data) != want {
		t.Errorf("output = %q, want %q", string(data), want)
	}
}

// TestAction_ExportsEnvironment tests that the invocation is visible to the
// script through WEFT_* variables.
func TestAction_ExportsEnvironment(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "env.txt")

	act := Action(`printf '%s' "$WEFT_RULE|$WEFT_INPUT|$WEFT_OUTPUT" > {output}`)
	err := act(context.Background(), workflow.Invocation{
		Rule:    "pack",
		Inputs:  []string{"x.txt"},
		Outputs: []string{out},
	})
	if err != nil {
		t.Fatalf("action error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "pack|x.txt|" + out
	if string(data) != want {
		t.Errorf("output = %q, want %q", string(data), want)
	}
}

// TestAction_FailureIncludesStderr tests that a failing script surfaces its
// exit status and diagnostic output.
func TestAction_FailureIncludesStderr(t *testing.T) {
	requireShell(t)

	act := Action("echo boom >&2; exit 7")
	err := act(context.Background(), workflow.Invocation{Rule: "broken"})
	if err == nil {
		t.Fatal("action error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "status 7") {
		t.Errorf("error = %q, want exit status mentioned", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want stderr detail included", err)
	}
}

// TestAction_UnboundPlaceholder tests that a script referencing an unknown
// wildcard fails before anything runs.
func TestAction_UnboundPlaceholder(t *testing.T) {
	act := Action("touch {missing}")
	err := act(context.Background(), workflow.Invocation{Rule: "r"})

	var unbound *pattern.UnboundError
	if !errors.As(err, &unbound) {
		t.Fatalf("action error = %v, want UnboundError", err)
	}
	if unbound.Name != "missing" {
		t.Errorf("Name = %q, want %q", unbound.Name, "missing")
	}
}
