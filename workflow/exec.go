package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/weftsh/weft/progress"
)

// RunConfig controls one planning and execution pass.
type RunConfig struct {
	// DryRun plans the build and prints job messages without invoking
	// any action.
	DryRun bool

	// ForceThis forces the requested rule to run even when its outputs
	// are up to date.
	ForceThis bool

	// ForceAll forces every transitively required rule to run.
	ForceAll bool

	// Quiet suppresses job messages. Errors are unaffected.
	Quiet bool

	// Jobs caps how many actions run concurrently. Values below one are
	// treated as one.
	Jobs int

	// Output receives job messages. Defaults to os.Stderr.
	Output io.Writer

	// Reporter receives planning and execution events. Defaults to
	// progress.NoOp.
	Reporter progress.Reporter
}

func (c RunConfig) normalized() RunConfig {
	if c.Jobs < 1 {
		c.Jobs = 1
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Reporter == nil {
		c.Reporter = progress.NoOp{}
	}
	return c
}

type jobResult struct {
	job *Job
	err error
}

// execute runs the plan rooted at root. A job dispatches once every
// dependency has completed successfully; at most cfg.Jobs actions run at a
// time. After the first failure no further jobs dispatch, in-flight actions
// drain, and the first error is returned.
func (w *Workflow) execute(ctx context.Context, root *Job, cfg RunConfig) error {
	jobs := root.Flatten()

	pending := make(map[*Job]int, len(jobs))
	dependents := make(map[*Job][]*Job)
	for _, job := range jobs {
		pending[job] = len(job.Deps)
		for _, dep := range job.Deps {
			dependents[dep] = append(dependents[dep], job)
		}
	}

	// dispatchCtx gates jobs still waiting for a worker slot. Actions
	// that already started keep the outer ctx so they can finish.
	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	defer cancelDispatch()

	sem := semaphore.NewWeighted(int64(cfg.Jobs))
	results := make(chan jobResult)

	running := 0
	dispatch := func(job *Job) {
		running++
		go func() {
			err := w.runJob(ctx, dispatchCtx, job, cfg, sem)
			results <- jobResult{job: job, err: err}
		}()
	}

	for _, job := range jobs {
		if pending[job] == 0 {
			dispatch(job)
		}
	}

	var firstErr error
	for running > 0 {
		res := <-results
		running--
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancelDispatch()
			}
			continue
		}
		if firstErr != nil {
			// Draining: the job finished fine, but nothing new
			// starts after a failure.
			continue
		}
		for _, parent := range dependents[res.job] {
			pending[parent]--
			if pending[parent] == 0 {
				dispatch(parent)
			}
		}
	}
	return firstErr
}

func (w *Workflow) runJob(ctx, dispatchCtx context.Context, job *Job, cfg RunConfig, sem *semaphore.Weighted) error {
	name := job.Rule.Name()
	if !job.NeedsRun {
		cfg.Reporter.OnJobSkipped(name, job.Outputs)
		return nil
	}
	if cfg.DryRun || !job.Rule.HasAction() {
		// Nothing to execute: the message is the whole job.
		cfg.Reporter.OnJobStart(name, job.Outputs)
		w.printMessage(job, cfg)
		cfg.Reporter.OnJobComplete(name, true, 0)
		return nil
	}
	if err := sem.Acquire(dispatchCtx, 1); err != nil {
		return err
	}
	defer sem.Release(1)
	return w.runAction(ctx, job, cfg)
}

func (w *Workflow) printMessage(job *Job, cfg RunConfig) {
	if cfg.Quiet {
		return
	}
	fmt.Fprintln(cfg.Output, job.Message)
}

// runAction invokes one job's action: print the message, make sure output
// directories exist, run the callback, and verify the declared outputs. A
// failed action has whatever it produced removed again so a later run does
// not mistake partial files for up-to-date outputs.
func (w *Workflow) runAction(ctx context.Context, job *Job, cfg RunConfig) error {
	name := job.Rule.Name()
	cfg.Reporter.OnJobStart(name, job.Outputs)
	started := time.Now()
	fail := func(err error) error {
		cfg.Reporter.OnJobComplete(name, false, time.Since(started))
		return err
	}

	w.printMessage(job, cfg)

	for _, out := range job.Outputs {
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fail(fmt.Errorf("create output directory for %s: %w", out, err))
			}
		}
	}

	err := job.Rule.action(ctx, Invocation{
		Rule:      name,
		Inputs:    job.Inputs,
		Outputs:   job.Outputs,
		Wildcards: job.Wildcards,
	})
	if err != nil {
		removeOutputs(job.Outputs)
		return fail(&ActionFailedError{Rule: name, Err: err})
	}

	var missing []string
	for _, out := range job.Outputs {
		if _, err := os.Stat(out); err != nil {
			missing = append(missing, out)
		}
	}
	if len(missing) > 0 {
		return fail(&MissingOutputError{Rule: name, Files: missing})
	}

	cfg.Reporter.OnJobComplete(name, true, time.Since(started))
	return nil
}

// removeOutputs deletes files and empty directories a failed action left
// behind. Errors are ignored; this is best-effort cleanup.
func removeOutputs(outputs []string) {
	for _, out := range outputs {
		_ = os.Remove(out)
	}
}
