package progress

import "time"

// Multi fans every event out to all given reporters, in order. Nil entries
// are dropped.
func Multi(reporters ...Reporter) Reporter {
	kept := make(multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			kept = append(kept, r)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return kept
}

type multi []Reporter

func (m multi) OnPlanStart(target string) {
	for _, r := range m {
		r.OnPlanStart(target)
	}
}

func (m multi) OnPlanComplete(target string, jobs int) {
	for _, r := range m {
		r.OnPlanComplete(target, jobs)
	}
}

func (m multi) OnJobStart(rule string, outputs []string) {
	for _, r := range m {
		r.OnJobStart(rule, outputs)
	}
}

func (m multi) OnJobSkipped(rule string, outputs []string) {
	for _, r := range m {
		r.OnJobSkipped(rule, outputs)
	}
}

func (m multi) OnJobComplete(rule string, success bool, duration time.Duration) {
	for _, r := range m {
		r.OnJobComplete(rule, success, duration)
	}
}

func (m multi) OnError(err error) {
	for _, r := range m {
		r.OnError(err)
	}
}
