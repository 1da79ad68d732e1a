package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// jobState tracks one rule's lifecycle in the tracker view.
type jobState int

const (
	jobRunning jobState = iota
	jobDone
	jobFailed
	jobSkipped
)

// trackedJob is one rule's row in the tracker.
type trackedJob struct {
	rule     string
	state    jobState
	duration time.Duration
}

// PlanMsg announces how many jobs the planner produced.
type PlanMsg struct {
	Target string
	Jobs   int
}

// JobStartMsg marks a rule's action as running.
type JobStartMsg struct{ Rule string }

// JobSkipMsg marks a rule as already up to date.
type JobSkipMsg struct{ Rule string }

// JobDoneMsg marks a rule's action as finished.
type JobDoneMsg struct {
	Rule     string
	Success  bool
	Duration time.Duration
}

// LogMsg carries one line of job or script output into the tracker.
type LogMsg string

// DoneMsg signals the end of the build. Err is nil on success.
type DoneMsg struct {
	Err     error
	Elapsed time.Duration
}

// maxTailLines is how many recent log lines the tracker shows.
const maxTailLines = 3

// BuildModel is the Bubble Tea model for the live build tracker. It renders
// a spinner, one status row per rule that has reported an event, and the
// tail of the job output.
type BuildModel struct {
	spinner   spinner.Model
	target    string
	planned   int
	jobs      []*trackedJob
	jobByRule map[string]*trackedJob
	tail      []string
	startTime time.Time
	done      bool
	err       error
	elapsed   time.Duration
	cancelled bool
}

// NewBuildModel creates a tracker for one build invocation.
func NewBuildModel(target string) *BuildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrand))

	return &BuildModel{
		spinner:   s,
		target:    target,
		jobByRule: make(map[string]*trackedJob),
		startTime: time.Now(),
	}
}

// Cancelled reports whether the user quit the tracker before the build
// finished.
func (m *BuildModel) Cancelled() bool { return m.cancelled }

func (m *BuildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *BuildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		}

	case PlanMsg:
		m.target = msg.Target
		m.planned += msg.Jobs

	case JobStartMsg:
		m.track(msg.Rule).state = jobRunning

	case JobSkipMsg:
		m.track(msg.Rule).state = jobSkipped

	case JobDoneMsg:
		j := m.track(msg.Rule)
		j.duration = msg.Duration
		if msg.Success {
			j.state = jobDone
		} else {
			j.state = jobFailed
		}

	case LogMsg:
		line := strings.TrimRight(string(msg), "\n")
		if line != "" {
			m.tail = append(m.tail, line)
			if len(m.tail) > maxTailLines {
				m.tail = m.tail[len(m.tail)-maxTailLines:]
			}
		}

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.elapsed = msg.Elapsed
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *BuildModel) View() string {
	var b strings.Builder

	if m.done {
		return m.renderCompletionView()
	}

	elapsed := time.Since(m.startTime).Round(time.Second)
	b.WriteString(fmt.Sprintf("%s building %s (%s)\n",
		m.spinner.View(), PrimaryStyle.Render(m.target), elapsed))

	for _, j := range m.jobs {
		b.WriteString("  " + m.jobRow(j) + "\n")
	}

	if len(m.tail) > 0 {
		b.WriteString("\n")
		for _, line := range m.tail {
			b.WriteString("  " + MutedStyle.Render(line) + "\n")
		}
	}

	b.WriteString(HintStyle.Render("press 'q' to abort\n"))
	return b.String()
}

func (m *BuildModel) jobRow(j *trackedJob) string {
	switch j.state {
	case jobDone:
		return fmt.Sprintf("%s %s %s", SuccessStyle.Render("✓"), j.rule,
			MutedStyle.Render(j.duration.Round(time.Millisecond).String()))
	case jobFailed:
		return fmt.Sprintf("%s %s", ErrorStyle.Render("✗"), j.rule)
	case jobSkipped:
		return fmt.Sprintf("%s %s %s", Bullet(), MutedStyle.Render(j.rule), MutedStyle.Render("up to date"))
	default:
		return fmt.Sprintf("%s %s", m.spinner.View(), j.rule)
	}
}

func (m *BuildModel) renderCompletionView() string {
	if m.err != nil {
		return ExitError(fmt.Sprintf("Build failed after %s", m.elapsed.Round(time.Millisecond))) + "\n"
	}
	return ExitSuccess(fmt.Sprintf("Built %s in %s", m.target, m.elapsed.Round(time.Millisecond))) + "\n"
}

func (m *BuildModel) track(rule string) *trackedJob {
	if j, ok := m.jobByRule[rule]; ok {
		return j
	}
	j := &trackedJob{rule: rule}
	m.jobByRule[rule] = j
	m.jobs = append(m.jobs, j)
	return j
}

// LogWriter adapts an io.Writer into LogMsg sends, so engine messages and
// captured script output feed the tracker's tail view.
type LogWriter struct {
	send func(tea.Msg)

	mu  sync.Mutex
	buf strings.Builder
}

// NewLogWriter wraps a message sink, usually (*tea.Program).Send.
func NewLogWriter(send func(tea.Msg)) *LogWriter {
	return &LogWriter{send: send}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		s := w.buf.String()
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			break
		}
		line := s[:i]
		w.buf.Reset()
		w.buf.WriteString(s[i+1:])
		if line != "" {
			w.send(LogMsg(line))
		}
	}
	return len(p), nil
}
