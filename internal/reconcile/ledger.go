package reconcile

import "time"

// OutcomeKind labels what happened to one reconciliation item.
type OutcomeKind string

const (
	OutcomeCreated      OutcomeKind = "created"
	OutcomeSkipped      OutcomeKind = "skipped" // unknown shift code
	OutcomeCreateFailed OutcomeKind = "create_failed"
	OutcomeDeleteFailed OutcomeKind = "delete_failed"
)

// Outcome is one ledger line. Create/skip outcomes carry the roster day
// and shift code; delete outcomes describe the remote event instead.
type Outcome struct {
	Day    int         `json:"day,omitempty"`
	Code   string      `json:"code,omitempty"`
	Kind   OutcomeKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// Ledger is the per-run reconciliation report. It is built fresh per
// run and never persisted; the remote calendar itself is the only state
// that survives.
type Ledger struct {
	Month      string    `json:"month"` // "2006-01"
	OwnerTag   string    `json:"owner_tag"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Attempted counts roster entries considered; Created and Deleted
	// count successful remote calls.
	Attempted int `json:"attempted"`
	Created   int `json:"created"`
	Deleted   int `json:"deleted"`

	Outcomes []Outcome `json:"outcomes"`
}

func (l *Ledger) record(o Outcome) {
	l.Outcomes = append(l.Outcomes, o)
}

// Failures returns the outcomes that were not clean creations.
func (l *Ledger) Failures() []Outcome {
	var out []Outcome
	for _, o := range l.Outcomes {
		if o.Kind != OutcomeCreated {
			out = append(out, o)
		}
	}
	return out
}
