package ingest

import (
	"time"

	"github.com/rickgao/bankrates/internal/model"
)

// Status is the result class of one source within a cycle.
type Status string

const (
	StatusWritten   Status = "written"   // at least one quote persisted
	StatusUnchanged Status = "unchanged" // fetched fine, nothing new
	StatusFailed    Status = "failed"    // see Reason
)

// Outcome reports what happened to one source.
type Outcome struct {
	Source   model.Source  `json:"source"`
	Status   Status        `json:"status"`
	Written  int           `json:"written"`
	Skipped  int           `json:"skipped"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// CycleReport summarizes one ingestion cycle.
type CycleReport struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Outcomes   []Outcome     `json:"outcomes"` // sorted by source
	RefreshErr error         `json:"-"`
}

// Outcome returns the outcome for src, if the cycle ran it.
func (r CycleReport) Outcome(src model.Source) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Source == src {
			return o, true
		}
	}
	return Outcome{}, false
}

// TotalWritten sums Written over every outcome, failed ones included.
func (r CycleReport) TotalWritten() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Written
	}
	return n
}

// Failed returns the failed outcomes.
func (r CycleReport) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r CycleReport) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
