// Package shell runs rule actions as shell scripts. Scripts execute through
// `sh -c` in their own process group, so cancelling a build tears down the
// whole process tree rather than orphaning children.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/weftsh/weft/pattern"
	"github.com/weftsh/weft/workflow"
)

// gracefulShutdownTimeout is how long a cancelled script gets to exit after
// SIGTERM before the process is killed outright.
const gracefulShutdownTimeout = 10 * time.Second

// RunConfig configures one script execution.
type RunConfig struct {
	Script       string
	Shell        string // interpreter; defaults to "sh"
	WorkDir      string
	Env          []string // appended to the inherited environment
	StreamOutput bool     // stream the script's output to stderr in real time
}

// RunResult contains the result of a script execution.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes the configured script and captures its output. A non-zero
// exit status is reported through RunResult, not as an error; errors are
// reserved for failures to run the script at all.
func Run(ctx context.Context, cfg *RunConfig) (*RunResult, error) {
	if strings.TrimSpace(cfg.Script) == "" {
		return nil, errors.New("empty script")
	}

	sh := cfg.Shell
	if sh == "" {
		sh = "sh"
	}

	cmd := exec.CommandContext(ctx, sh, "-c", cfg.Script) //nolint:gosec // running user-authored build scripts is the point
	cmd.Dir = cfg.WorkDir
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.WaitDelay = gracefulShutdownTimeout
	setupProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	if cfg.StreamOutput {
		cmd.Stdout = io.MultiWriter(&stdout, os.Stderr)
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("running %s: %w", sh, err)
		}
	}

	return &RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// Action adapts a shell script into a rule action. Before running, {input}
// and {output} expand to the space-joined concrete paths and each wildcard
// name expands to its bound value; the same values are exported as
// WEFT_RULE, WEFT_INPUT and WEFT_OUTPUT for scripts that prefer the
// environment. A non-zero exit status fails the action. The script's output
// streams to stderr as it runs.
func Action(script string) workflow.Action {
	return action(script, true)
}

// CapturedAction is Action without the live streaming: the script's output
// stays captured, and on failure the tail of it rides along in the error.
// Used when a TUI owns the terminal.
func CapturedAction(script string) workflow.Action {
	return action(script, false)
}

func action(script string, stream bool) workflow.Action {
	return func(ctx context.Context, inv workflow.Invocation) error {
		values := make(map[string]string, len(inv.Wildcards)+2)
		for name, value := range inv.Wildcards {
			values[name] = value
		}
		inputs := strings.Join(inv.Inputs, " ")
		outputs := strings.Join(inv.Outputs, " ")
		values["input"] = inputs
		values["output"] = outputs

		expanded, err := pattern.Substitute(script, values)
		if err != nil {
			return err
		}

		res, err := Run(ctx, &RunConfig{
			Script: expanded,
			Env: []string{
				"WEFT_RULE=" + inv.Rule,
				"WEFT_INPUT=" + inputs,
				"WEFT_OUTPUT=" + outputs,
			},
			StreamOutput: stream,
		})
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			detail := strings.TrimSpace(res.Stderr)
			if detail == "" {
				detail = strings.TrimSpace(res.Stdout)
			}
			if detail == "" {
				return fmt.Errorf("shell exited with status %d", res.ExitCode)
			}
			return fmt.Errorf("shell exited with status %d: %s", res.ExitCode, detail)
		}
		return nil
	}
}
