package upstream

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fivethreefive/legisync/internal/record"
)

// VoteSummary is a vote as listed for a period, enough to fetch its details.
type VoteSummary struct {
	Chamber  string
	Congress int
	Session  int
	RollCall int
	Question string
	Result   string
	BillID   string
	Time     time.Time
}

// ID returns the stable id of the summarized vote.
func (s VoteSummary) ID() string {
	return record.VoteID(s.Chamber, s.Congress, s.Session, s.RollCall)
}

// ListVotes lists the roll calls of chamber between start and end, inclusive by date.
func (c *Client) ListVotes(ctx context.Context, chamber string, start, end time.Time) ([]VoteSummary, error) {
	chamber = strings.ToLower(chamber)
	endpoint := fmt.Sprintf("%s/votes/%s/%s.json", chamber,
		start.In(Eastern).Format(dateLayout), end.In(Eastern).Format(dateLayout))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("list %s votes: %w", chamber, err)
	}

	var summaries []VoteSummary
	var listErr error
	body.Get("results.votes").ForEach(func(_, v gjson.Result) bool {
		s := VoteSummary{
			Chamber:  strings.ToLower(v.Get("chamber").String()),
			Congress: int(v.Get("congress").Int()),
			Session:  int(v.Get("session").Int()),
			RollCall: int(v.Get("roll_call").Int()),
			Question: v.Get("question").String(),
			Result:   v.Get("result").String(),
			BillID:   strings.ToLower(v.Get("bill.bill_id").String()),
		}
		if s.Chamber == "" {
			s.Chamber = chamber
		}
		if s.Congress == 0 || s.Session == 0 || s.RollCall == 0 {
			// a list entry without identity makes the candidate set unknowable
			listErr = &MalformedRecordError{Kind: record.KindVote, Field: "congress/session/roll_call"}
			return false
		}
		if t, err := parseDateTime(v.Get("date").String(), v.Get("time").String()); err == nil {
			s.Time = t
		}
		summaries = append(summaries, s)
		return true
	})
	if listErr != nil {
		return nil, fmt.Errorf("list %s votes: %w", chamber, listErr)
	}
	return summaries, nil
}

// FetchVote fetches the full roll call of s.
func (c *Client) FetchVote(ctx context.Context, s VoteSummary) (*record.Vote, error) {
	endpoint := fmt.Sprintf("%d/%s/sessions/%d/votes/%d.json", s.Congress, strings.ToLower(s.Chamber), s.Session, s.RollCall)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch vote %s: %w", s.ID(), err)
	}
	return parseVote(body.Get("results.votes.vote"), s)
}

func parseVote(v gjson.Result, s VoteSummary) (*record.Vote, error) {
	id := s.ID()
	if !v.Exists() {
		return nil, &MalformedRecordError{Kind: record.KindVote, ID: id, Field: "results.votes.vote"}
	}
	for _, field := range []string{"question", "result"} {
		if !v.Get(field).Exists() {
			return nil, &MalformedRecordError{Kind: record.KindVote, ID: id, Field: field}
		}
	}

	vote := &record.Vote{
		Bookkeeping: record.Bookkeeping{Tracking: true},
		ID:          id,
		Chamber:     strings.ToLower(s.Chamber),
		Congress:    s.Congress,
		Session:     s.Session,
		RollCall:    s.RollCall,
		Question:    v.Get("question").String(),
		Description: v.Get("description").String(),
		VoteType:    v.Get("vote_type").String(),
		RawResult:   v.Get("result").String(),
		Result:      record.ParseResult(v.Get("result").String()),
		Tallies:     map[string]record.Tally{},
		BillID:      strings.ToLower(v.Get("bill.bill_id").String()),
		BillTitle:   v.Get("bill.title").String(),
	}
	if t, err := parseDateTime(v.Get("date").String(), v.Get("time").String()); err == nil {
		vote.Time = t
	} else {
		vote.Time = s.Time
	}

	for _, party := range []string{"democratic", "republican", "independent"} {
		t := v.Get(party)
		if !t.Exists() {
			continue
		}
		vote.Tallies[party] = record.Tally{
			Yes:              int(t.Get("yes").Int()),
			No:               int(t.Get("no").Int()),
			Present:          int(t.Get("present").Int()),
			NotVoting:        int(t.Get("not_voting").Int()),
			MajorityPosition: t.Get("majority_position").String(),
		}
	}

	v.Get("positions").ForEach(func(_, p gjson.Result) bool {
		vote.Positions = append(vote.Positions, record.Position{
			MemberID:     p.Get("member_id").String(),
			Name:         p.Get("name").String(),
			Party:        p.Get("party").String(),
			State:        p.Get("state").String(),
			VotePosition: p.Get("vote_position").String(),
		})
		return true
	})

	return vote, nil
}

var voteURIPattern = regexp.MustCompile(`/(\d+)/(house|senate)/sessions/(\d+)/votes/(\d+)\.json`)

// voteIDFromURI derives a vote id from a provider vote api url.
func voteIDFromURI(uri string) (string, bool) {
	m := voteURIPattern.FindStringSubmatch(strings.ToLower(uri))
	if m == nil {
		return "", false
	}
	// the pattern guarantees digits
	congress, _ := strconv.Atoi(m[1])
	session, _ := strconv.Atoi(m[3])
	roll, _ := strconv.Atoi(m[4])
	return record.VoteID(m[2], congress, session, roll), true
}
