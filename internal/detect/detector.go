// Package detect decides whether a freshly fetched record differs from its stored
// snapshot in any published field.
package detect

import (
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/fivethreefive/legisync/internal/record"
)

type accessor func(record.Record) any

var billFields = map[string]accessor{
	"title":        func(r record.Record) any { return r.(*record.Bill).Title },
	"name":         func(r record.Record) any { return r.(*record.Bill).Name },
	"type":         func(r record.Record) any { return r.(*record.Bill).Type },
	"introduced":   func(r record.Record) any { return r.(*record.Bill).Introduced },
	"status":       func(r record.Record) any { return r.(*record.Bill).Status },
	"officialLink": func(r record.Record) any { return r.(*record.Bill).OfficialLink },
	"subjects":     func(r record.Record) any { return r.(*record.Bill).Subjects },
	"votes":        func(r record.Record) any { return r.(*record.Bill).Votes },
	"summary":      func(r record.Record) any { return r.(*record.Bill).Summary },
	"timeline":     func(r record.Record) any { return r.(*record.Bill).Timeline },
}

var voteFields = map[string]accessor{
	"question":  func(r record.Record) any { return r.(*record.Vote).Question },
	"result":    func(r record.Record) any { return r.(*record.Vote).Result },
	"tallies":   func(r record.Record) any { return r.(*record.Vote).Tallies },
	"positions": func(r record.Record) any { return r.(*record.Vote).Positions },
}

// DefaultBillFields are the published fields of a bill, in comparison order.
func DefaultBillFields() []string {
	return []string{"title", "name", "type", "introduced", "status", "officialLink",
		"subjects", "votes", "summary", "timeline"}
}

// DefaultVoteFields are the published fields of a vote, in comparison order.
func DefaultVoteFields() []string {
	return []string{"question", "result", "tallies", "positions"}
}

// Detector compares records on their published fields. It is immutable and safe for
// concurrent use.
type Detector struct {
	fields map[record.Kind][]string
}

// Option configures a Detector.
type Option func(*Detector) error

// WithBillFields restricts bill comparison to names.
func WithBillFields(names ...string) Option {
	return withFields(record.KindBill, billFields, names)
}

// WithVoteFields restricts vote comparison to names.
func WithVoteFields(names ...string) Option {
	return withFields(record.KindVote, voteFields, names)
}

func withFields(kind record.Kind, known map[string]accessor, names []string) Option {
	return func(d *Detector) error {
		if len(names) == 0 {
			return nil
		}
		for _, n := range names {
			if _, ok := known[n]; !ok {
				return fmt.Errorf("unknown published %s field %q", kind, n)
			}
		}
		d.fields[kind] = slices.Compact(slices.Clone(names))
		return nil
	}
}

// New creates a detector using the default field sets unless overridden.
func New(opts ...Option) (*Detector, error) {
	d := &Detector{fields: map[record.Kind][]string{
		record.KindBill: DefaultBillFields(),
		record.KindVote: DefaultVoteFields(),
	}}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Fields returns the compared field names of kind.
func (d *Detector) Fields(kind record.Kind) []string {
	return slices.Clone(d.fields[kind])
}

// NeedsPublish reports whether fresh must be published or amended given the stored
// snapshot. A missing snapshot always needs publishing.
func (d *Detector) NeedsPublish(fresh, stored record.Record) bool {
	if isAbsent(stored) {
		return true
	}
	return len(d.Changes(fresh, stored)) > 0
}

// Changes lists the published fields in which fresh and stored differ. Against a
// missing snapshot, or one of another kind, every field differs.
func (d *Detector) Changes(fresh, stored record.Record) []string {
	kind := fresh.Key().Kind
	names := d.fields[kind]
	if isAbsent(stored) || stored.Key().Kind != kind {
		return slices.Clone(names)
	}

	known := billFields
	if kind == record.KindVote {
		known = voteFields
	}

	var changed []string
	for _, name := range names {
		get := known[name]
		if !cmp.Equal(get(fresh), get(stored), compareOpts...) {
			changed = append(changed, name)
		}
	}
	return changed
}

// Vote references are a set; the provider may list them in any order.
var compareOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmpopts.SortSlices(func(a, b record.VoteRef) bool { return a.ID < b.ID }),
}

func isAbsent(r record.Record) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *record.Bill:
		return v == nil
	case *record.Vote:
		return v == nil
	default:
		return false
	}
}
