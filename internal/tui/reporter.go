package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Reporter bridges engine progress events into tracker messages. Safe for
// concurrent use; tea.Program.Send already serialises message delivery.
type Reporter struct {
	send func(tea.Msg)
}

// NewReporter wraps a message sink, usually (*tea.Program).Send.
func NewReporter(send func(tea.Msg)) *Reporter {
	return &Reporter{send: send}
}

func (r *Reporter) OnPlanStart(target string) {}

func (r *Reporter) OnPlanComplete(target string, jobs int) {
	r.send(PlanMsg{Target: target, Jobs: jobs})
}

func (r *Reporter) OnJobStart(rule string, outputs []string) {
	r.send(JobStartMsg{Rule: rule})
}

func (r *Reporter) OnJobSkipped(rule string, outputs []string) {
	r.send(JobSkipMsg{Rule: rule})
}

func (r *Reporter) OnJobComplete(rule string, success bool, duration time.Duration) {
	r.send(JobDoneMsg{Rule: rule, Success: success, Duration: duration})
}

func (r *Reporter) OnError(err error) {}
