package record

import (
	"slices"
	"strings"
	"time"
)

// BillStatus is the legislative progress of a bill.
type BillStatus string

// Bill statuses, from least to most advanced.
const (
	StatusNew            BillStatus = "new"
	StatusPassedSenate   BillStatus = "passed_senate"
	StatusPassedHouse    BillStatus = "passed_house"
	StatusPassedCongress BillStatus = "passed_congress"
	StatusEnacted        BillStatus = "passed"
	StatusVetoed         BillStatus = "vetoed"
)

// Passage holds the facts a bill status is derived from.
type Passage struct {
	HousePassed  bool
	SenatePassed bool
	Enacted      bool
	Vetoed       bool
}

// DeriveStatus picks the most significant status: vetoed, then enacted, then passage
// by both chambers, then by either chamber.
func DeriveStatus(p Passage) BillStatus {
	switch {
	case p.Vetoed:
		return StatusVetoed
	case p.Enacted:
		return StatusEnacted
	case p.HousePassed && p.SenatePassed:
		return StatusPassedCongress
	case p.HousePassed:
		return StatusPassedHouse
	case p.SenatePassed:
		return StatusPassedSenate
	default:
		return StatusNew
	}
}

// DeriveType maps a provider bill type ("hr", "s", "sjres", ...) to its display type.
func DeriveType(raw string) string {
	switch {
	case raw == "s":
		return "senate bill"
	case raw == "sres":
		return "senate res"
	case strings.Contains(raw, "jres"):
		return "joint res"
	case raw == "hr":
		return "house bill"
	default:
		return "misc"
	}
}

// VoteRef points at a vote stored on its own. Resolve it with a second store load.
type VoteRef struct {
	ID string `json:"id"`
}

// Key returns the referenced vote's key.
func (r VoteRef) Key() Key {
	return Key{Kind: KindVote, ID: r.ID}
}

// Bill is a piece of legislation.
type Bill struct {
	Bookkeeping

	ID       string `json:"id"`
	Congress int    `json:"congress"`
	Chamber  string `json:"chamber"`

	// Published fields.
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Introduced   time.Time  `json:"introduced"`
	Status       BillStatus `json:"status"`
	OfficialLink string     `json:"officialLink"`
	Subjects     []string   `json:"subjects"`
	Votes        []VoteRef  `json:"votes"`
	Summary      string     `json:"summary"`
	Timeline     Timeline   `json:"timeline"`

	// Informational fields, never compared.
	RawType         string    `json:"rawType"`
	Sponsor         string    `json:"sponsor,omitempty"`
	SponsorParty    string    `json:"sponsorParty,omitempty"`
	SponsorState    string    `json:"sponsorState,omitempty"`
	Cosponsors      int       `json:"cosponsors"`
	LastMajorAction time.Time `json:"lastMajorAction,omitzero"`
}

// Key returns the bill's key.
func (b *Bill) Key() Key {
	return Key{Kind: KindBill, ID: b.ID}
}

// Book returns the bill's bookkeeping.
func (b *Bill) Book() *Bookkeeping {
	return &b.Bookkeeping
}

// Clone returns a deep copy.
func (b *Bill) Clone() Record {
	c := *b
	c.Bookkeeping = b.Bookkeeping.clone()
	c.Subjects = slices.Clone(b.Subjects)
	c.Votes = slices.Clone(b.Votes)
	c.Timeline = slices.Clone(b.Timeline)
	return &c
}

// HasVote reports whether id is already referenced.
func (b *Bill) HasVote(id string) bool {
	return slices.ContainsFunc(b.Votes, func(r VoteRef) bool { return r.ID == id })
}

// MergeVotes keeps the references of a stored snapshot ahead of b's own. The stored
// order is preserved and references only b knows are appended after them.
func (b *Bill) MergeVotes(stored []VoteRef) {
	merged := slices.Clone(stored)
	for _, ref := range b.Votes {
		if !slices.ContainsFunc(merged, func(r VoteRef) bool { return r.ID == ref.ID }) {
			merged = append(merged, ref)
		}
	}
	b.Votes = merged
}

// AddVote appends a reference unless it is already present.
func (b *Bill) AddVote(id string) {
	if !b.HasVote(id) {
		b.Votes = append(b.Votes, VoteRef{ID: id})
	}
}
