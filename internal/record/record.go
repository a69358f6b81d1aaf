package record

import (
	"fmt"
	"regexp"
	"time"
)

// Kind is the record variant.
type Kind string

const (
	// KindBill identifies bills
	KindBill Kind = "bill"
	// KindVote identifies roll-call votes
	KindVote Kind = "vote"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBill, KindVote:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown record kind %q (want bill or vote)", s)
	}
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Key identifies a record across passes and restarts.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + "/" + k.ID
}

// Validate rejects keys that could not be stored safely.
func (k Key) Validate() error {
	if _, err := ParseKind(string(k.Kind)); err != nil {
		return err
	}
	if !idPattern.MatchString(k.ID) {
		return fmt.Errorf("invalid %s id %q", k.Kind, k.ID)
	}
	return nil
}

// Ref is the publish target's identifier of a post, e.g. "t3_5x82ot".
type Ref string

// Bookkeeping is the publish-tracking state of a record.
type Bookkeeping struct {
	// PublishedRef is set once by the first confirmed publish.
	PublishedRef Ref `json:"publishedRef,omitempty"`
	// Tracking is false once a record is decommissioned; it is then never acted on.
	Tracking    bool       `json:"tracking"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	AmendedAt   *time.Time `json:"amendedAt,omitempty"`
	// Revision counts publish and amend actions.
	Revision int `json:"revision"`
}

// Published reports whether the record has a live post.
func (b *Bookkeeping) Published() bool {
	return b.PublishedRef != ""
}

// Record is the tagged variant of Bill and Vote.
type Record interface {
	Key() Key
	Book() *Bookkeeping
	// Clone returns a deep copy.
	Clone() Record
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (b Bookkeeping) clone() Bookkeeping {
	b.PublishedAt = cloneTime(b.PublishedAt)
	b.AmendedAt = cloneTime(b.AmendedAt)
	return b
}
