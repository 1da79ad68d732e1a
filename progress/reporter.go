package progress

import "time"

// Reporter allows external code to receive progress updates during a build.
// The CLI implements this with TUI updates and run-history recording; other
// frontends could implement it with webhooks or logs. Job callbacks may be
// invoked from concurrent workers, so implementations must be safe for
// concurrent use.
type Reporter interface {
	OnPlanStart(target string)
	OnPlanComplete(target string, jobs int)
	OnJobStart(rule string, outputs []string)
	OnJobSkipped(rule string, outputs []string)
	OnJobComplete(rule string, success bool, duration time.Duration)
	OnError(err error)
}

// NoOp is a Reporter that does nothing. Use as default when no reporting is needed.
type NoOp struct{}

func (NoOp) OnPlanStart(target string)                                    {}
func (NoOp) OnPlanComplete(target string, jobs int)                       {}
func (NoOp) OnJobStart(rule string, outputs []string)                     {}
func (NoOp) OnJobSkipped(rule string, outputs []string)                   {}
func (NoOp) OnJobComplete(rule string, success bool, duration time.Duration) {}
func (NoOp) OnError(err error)                                            {}
