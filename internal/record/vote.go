package record

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Result is the outcome of a roll call.
type Result string

// Vote results.
const (
	ResultPassed  Result = "passed"
	ResultFailed  Result = "failed"
	ResultPending Result = "pending"
)

// ParseResult maps a provider result text ("Passed", "Motion Agreed to",
// "Cloture Motion Rejected", ...) to a Result. Unknown texts are pending.
func ParseResult(text string) Result {
	t := strings.ToLower(text)
	// "not agreed" must win over "agreed"
	for _, s := range []string{"not agreed", "failed", "rejected", "defeated"} {
		if strings.Contains(t, s) {
			return ResultFailed
		}
	}
	for _, s := range []string{"passed", "agreed", "confirmed", "adopted", "ratified"} {
		if strings.Contains(t, s) {
			return ResultPassed
		}
	}
	return ResultPending
}

// Tally is one party's count.
type Tally struct {
	Yes              int    `json:"yes"`
	No               int    `json:"no"`
	Present          int    `json:"present"`
	NotVoting        int    `json:"notVoting"`
	MajorityPosition string `json:"majorityPosition,omitempty"`
}

// Position is one member's vote.
type Position struct {
	MemberID     string `json:"memberId"`
	Name         string `json:"name"`
	Party        string `json:"party"`
	State        string `json:"state"`
	VotePosition string `json:"votePosition"`
}

// Vote is a roll call in one chamber.
type Vote struct {
	Bookkeeping

	ID       string `json:"id"`
	Chamber  string `json:"chamber"`
	Congress int    `json:"congress"`
	Session  int    `json:"session"`
	RollCall int    `json:"rollCall"`

	// Published fields.
	Question  string           `json:"question"`
	Result    Result           `json:"result"`
	Tallies   map[string]Tally `json:"tallies"`
	Positions []Position       `json:"positions"`

	// Informational fields, never compared.
	Description string    `json:"description"`
	VoteType    string    `json:"voteType"`
	RawResult   string    `json:"rawResult"`
	Time        time.Time `json:"time"`
	// BillID and BillTitle denormalize the measure voted on. Empty for non-bill votes.
	BillID    string `json:"billId,omitempty"`
	BillTitle string `json:"billTitle,omitempty"`
}

// VoteID builds the stable vote identifier.
func VoteID(chamber string, congress, session, rollCall int) string {
	return fmt.Sprintf("%s-%d-%d-%d", strings.ToLower(chamber), congress, session, rollCall)
}

// Key returns the vote's key.
func (v *Vote) Key() Key {
	return Key{Kind: KindVote, ID: v.ID}
}

// Book returns the vote's bookkeeping.
func (v *Vote) Book() *Bookkeeping {
	return &v.Bookkeeping
}

// Clone returns a deep copy.
func (v *Vote) Clone() Record {
	c := *v
	c.Bookkeeping = v.Bookkeeping.clone()
	c.Tallies = maps.Clone(v.Tallies)
	c.Positions = slices.Clone(v.Positions)
	return &c
}

// Total sums all tallies.
func (v *Vote) Total() Tally {
	var total Tally
	for _, t := range v.Tallies {
		total.Yes += t.Yes
		total.No += t.No
		total.Present += t.Present
		total.NotVoting += t.NotVoting
	}
	return total
}
