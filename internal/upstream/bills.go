package upstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fivethreefive/legisync/internal/record"
)

// NoSubjects is the subject list of a bill whose subjects could not be fetched.
var NoSubjects = []string{"No subjects found."}

// splitBillID splits "hr1-115" into slug "hr1" and congress "115".
func splitBillID(billID string) (slug, congress string, err error) {
	i := strings.LastIndex(billID, "-")
	if i <= 0 || i == len(billID)-1 {
		return "", "", fmt.Errorf("invalid bill id %q", billID)
	}
	return billID[:i], billID[i+1:], nil
}

// FetchBill fetches a bill by provider id ("hr1-115") together with its subjects.
func (c *Client) FetchBill(ctx context.Context, billID string) (*record.Bill, error) {
	billID = strings.ToLower(billID)
	slug, congress, err := splitBillID(billID)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/bills/%s.json", congress, slug))
	if err != nil {
		return nil, fmt.Errorf("fetch bill %s: %w", billID, err)
	}

	bill, err := parseBill(billID, firstResult(body))
	if err != nil {
		return nil, err
	}
	bill.Subjects = c.fetchSubjects(ctx, congress, slug)
	return bill, nil
}

// fetchSubjects never fails; a missing subject list degrades to NoSubjects.
func (c *Client) fetchSubjects(ctx context.Context, congress, slug string) []string {
	body, err := c.get(ctx, fmt.Sprintf("%s/bills/%s/subjects.json", congress, slug))
	if err != nil {
		return append([]string(nil), NoSubjects...)
	}
	var subjects []string
	firstResult(body).Get("subjects.#.name").ForEach(func(_, name gjson.Result) bool {
		subjects = append(subjects, name.String())
		return true
	})
	if len(subjects) == 0 {
		return append([]string(nil), NoSubjects...)
	}
	return subjects
}

// firstResult handles both list and object shaped "results".
func firstResult(body gjson.Result) gjson.Result {
	results := body.Get("results")
	if results.IsArray() {
		return results.Get("0")
	}
	return results
}

func parseBill(billID string, b gjson.Result) (*record.Bill, error) {
	if !b.Exists() {
		return nil, &MalformedRecordError{Kind: record.KindBill, ID: billID, Field: "results"}
	}
	for _, field := range []string{"title", "bill_type", "introduced_date"} {
		if b.Get(field).String() == "" {
			return nil, &MalformedRecordError{Kind: record.KindBill, ID: billID, Field: field}
		}
	}
	introduced, err := parseDateTime(b.Get("introduced_date").String(), "")
	if err != nil {
		return nil, &MalformedRecordError{Kind: record.KindBill, ID: billID, Field: "introduced_date"}
	}

	rawType := b.Get("bill_type").String()
	bill := &record.Bill{
		Bookkeeping:  record.Bookkeeping{Tracking: true},
		ID:           billID,
		Congress:     int(b.Get("congress").Int()),
		Chamber:      chamberOf(rawType),
		Title:        b.Get("title").String(),
		Name:         b.Get("bill").String(),
		Type:         record.DeriveType(rawType),
		RawType:      rawType,
		Introduced:   introduced,
		OfficialLink: b.Get("gpo_pdf_uri").String(),
		Summary:      b.Get("summary_short").String(),
		Sponsor:      b.Get("sponsor").String(),
		SponsorParty: b.Get("sponsor_party").String(),
		SponsorState: b.Get("sponsor_state").String(),
		Cosponsors:   int(b.Get("cosponsors").Int()),
		Status: record.DeriveStatus(record.Passage{
			HousePassed:  b.Get("house_passage_vote").String() != "",
			SenatePassed: b.Get("senate_passage_vote").String() != "",
			Enacted:      b.Get("enacted").String() != "",
			Vetoed:       b.Get("vetoed").String() != "",
		}),
	}
	if bill.Name == "" {
		bill.Name = b.Get("number").String()
	}
	if bill.OfficialLink == "" {
		bill.OfficialLink = b.Get("congressdotgov_url").String()
	}
	if bill.Congress == 0 {
		if _, congress, err := splitBillID(billID); err == nil {
			bill.Congress, _ = strconv.Atoi(congress)
		}
	}
	if t, err := parseDateTime(b.Get("latest_major_action_date").String(), ""); err == nil {
		bill.LastMajorAction = t
	}

	b.Get("actions").ForEach(func(_, a gjson.Result) bool {
		at, err := parseDateTime(a.Get("datetime").String(), "")
		if err != nil {
			return true
		}
		bill.Timeline = bill.Timeline.Add(at, a.Get("description").String())
		return true
	})

	b.Get("votes").ForEach(func(_, v gjson.Result) bool {
		if id, ok := voteIDFromURI(v.Get("api_url").String()); ok {
			bill.AddVote(id)
		}
		return true
	})

	return bill, nil
}

func chamberOf(rawType string) string {
	if strings.HasPrefix(rawType, "s") {
		return "senate"
	}
	return "house"
}
