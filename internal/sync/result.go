package sync

import (
	"time"

	"github.com/fivethreefive/legisync/internal/record"
)

// Cursor is the period whose roll calls a pass considers.
type Cursor struct {
	Start time.Time
	End   time.Time
}

// Phase is a step of record processing.
type Phase string

// Phases in processing order.
const (
	PhaseFetching   Phase = "FETCHING"
	PhaseResolving  Phase = "RESOLVING"
	PhaseDeciding   Phase = "DECIDING"
	PhaseActing     Phase = "ACTING"
	PhasePersisting Phase = "PERSISTING"
	PhaseDone       Phase = "DONE"
)

// Outcome is what a pass did with one record.
type Outcome string

// Record outcomes.
const (
	OutcomePublished Outcome = "published"
	OutcomeAmended   Outcome = "amended"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Failure is a record left for the next pass.
type Failure struct {
	Key   record.Key
	Phase Phase
	Err   error
}

// Result summarizes a pass.
type Result struct {
	PassID     string
	Cursor     Cursor
	Candidates int
	Published  int
	Amended    int
	Unchanged  int
	Skipped    int
	Failed     int
	Failures   []Failure

	byKind map[record.Kind]map[Outcome]int
}

func (r *Result) fail(key record.Key, phase Phase, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{Key: key, Phase: phase, Err: err})
	r.record(key, OutcomeFailed)
}

func (r *Result) record(key record.Key, outcome Outcome) {
	if r.byKind == nil {
		r.byKind = map[record.Kind]map[Outcome]int{}
	}
	if r.byKind[key.Kind] == nil {
		r.byKind[key.Kind] = map[Outcome]int{}
	}
	r.byKind[key.Kind][outcome]++
}
