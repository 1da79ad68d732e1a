package progress

import (
	"sync"
	"time"
)

// JobStatus is the terminal state of one job in a run.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped"
)

// JobRecord is one job's outcome as observed through Reporter events.
type JobRecord struct {
	Rule     string
	Outputs  []string
	Status   JobStatus
	Duration time.Duration
}

// Summary is the aggregated outcome of one run.
type Summary struct {
	Target   string
	Planned  int
	Ran      int
	Skipped  int
	Failed   int
	Err      error
	Elapsed  time.Duration
	Records  []JobRecord
	Started  time.Time
	Finished time.Time
}

// Collector is a Reporter that accumulates per-job records and counts. Job
// events arrive from concurrent workers, so all state is guarded by a mutex.
type Collector struct {
	mu      sync.Mutex
	target  string
	planned int
	records []JobRecord
	index   map[string]int
	err     error
	started time.Time
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{index: make(map[string]int), started: time.Now()}
}

func (c *Collector) OnPlanStart(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.started = time.Now()
}

func (c *Collector) OnPlanComplete(target string, jobs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planned += jobs
}

func (c *Collector) OnJobStart(rule string, outputs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(rule, JobRecord{Rule: rule, Outputs: outputs, Status: JobRunning})
}

func (c *Collector) OnJobSkipped(rule string, outputs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(rule, JobRecord{Rule: rule, Outputs: outputs, Status: JobSkipped})
}

func (c *Collector) OnJobComplete(rule string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := JobSucceeded
	if !success {
		status = JobFailed
	}
	if i, ok := c.index[rule]; ok {
		c.records[i].Status = status
		c.records[i].Duration = duration
		return
	}
	c.record(rule, JobRecord{Rule: rule, Status: status, Duration: duration})
}

func (c *Collector) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// record stores or replaces the entry for one rule. A rule appears at most
// once per run: the job memo guarantees one job per (rule, outputs) pair and
// a rule binds one output set per target.
func (c *Collector) record(rule string, rec JobRecord) {
	if i, ok := c.index[rule]; ok {
		rec.Duration = c.records[i].Duration
		c.records[i] = rec
		return
	}
	c.index[rule] = len(c.records)
	c.records = append(c.records, rec)
}

// Summary snapshots the collected state. Safe to call while events are still
// arriving, though counts are only final once the run returned.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Target:   c.target,
		Planned:  c.planned,
		Err:      c.err,
		Started:  c.started,
		Finished: time.Now(),
		Records:  make([]JobRecord, len(c.records)),
	}
	copy(s.Records, c.records)
	s.Elapsed = s.Finished.Sub(s.Started)
	for _, rec := range s.Records {
		switch rec.Status {
		case JobSucceeded, JobRunning:
			s.Ran++
		case JobFailed:
			s.Failed++
		case JobSkipped:
			s.Skipped++
		}
	}
	return s
}
