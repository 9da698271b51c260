package verdict

import (
	"maps"
	"time"

	"github.com/vk/stagegrid/internal/stage"
)

// Report is the observable result of one run.
type Report struct {
	RunID     string          `json:"run_id" yaml:"run_id"`
	Pipeline  string          `json:"pipeline" yaml:"pipeline"`
	Verdict   Verdict         `json:"verdict" yaml:"verdict"`
	Outcomes  []stage.Outcome `json:"outcomes" yaml:"outcomes"`
	Params    map[string]any  `json:"params,omitempty" yaml:"params,omitempty"`
	Facts     map[string]any  `json:"facts,omitempty" yaml:"facts,omitempty"`
	Aborted   bool            `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`

	// Err is the run-fatal error, if any.
	Err error `json:"-" yaml:"-"`
}

// Clone returns a deep copy so collaborators can never observe each other's
// modifications.
func (r Report) Clone() Report {
	if r.Outcomes != nil {
		outcomes := make([]stage.Outcome, len(r.Outcomes))
		for i, o := range r.Outcomes {
			outcomes[i] = o.Clone()
		}
		r.Outcomes = outcomes
	}
	r.Params = maps.Clone(r.Params)
	r.Facts = maps.Clone(r.Facts)
	return r
}

// Outcome returns the outcome recorded for a stage path.
func (r Report) Outcome(path string) (stage.Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Path == path {
			return o, true
		}
	}
	return stage.Outcome{}, false
}

// Counts tallies outcomes by status.
func (r Report) Counts() map[stage.Status]int {
	counts := make(map[stage.Status]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Failures returns the failed or timed-out outcomes in report order.
func (r Report) Failures() []stage.Outcome {
	var failed []stage.Outcome
	for _, o := range r.Outcomes {
		if o.Status.IsFailure() {
			failed = append(failed, o)
		}
	}
	return failed
}
