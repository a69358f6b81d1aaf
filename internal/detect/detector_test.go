package detect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivethreefive/legisync/internal/detect"
	"github.com/fivethreefive/legisync/internal/record"
)

var introduced = time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC)

func bill() *record.Bill {
	return &record.Bill{
		ID:           "hr1-115",
		Title:        "Tax Cuts and Jobs Act",
		Name:         "H.R.1",
		Type:         "house bill",
		Introduced:   introduced,
		Status:       record.StatusNew,
		OfficialLink: "https://www.congress.gov/bill/115th-congress/house-bill/1",
		Subjects:     []string{"Taxation"},
		Votes:        []record.VoteRef{{ID: "house-115-1-637"}},
		Summary:      "Amends the Internal Revenue Code",
		Timeline:     record.NewTimeline(record.TimelineEntry{At: introduced, Action: "Introduced"}),
	}
}

func vote() *record.Vote {
	return &record.Vote{
		ID:       "house-115-1-637",
		Question: "On Passage",
		Result:   record.ResultPassed,
		Tallies:  map[string]record.Tally{"republican": {Yes: 227, No: 13}},
		Positions: []record.Position{
			{MemberID: "A000374", VotePosition: "Yes"},
		},
	}
}

func TestDetector_NeedsPublish(t *testing.T) {
	t.Parallel()

	d, err := detect.New()
	require.NoError(t, err)

	tests := []struct {
		name     string
		fresh    record.Record
		stored   func() record.Record
		expected bool
		changes  []string
	}{
		{
			name:     "first sighting",
			fresh:    bill(),
			stored:   func() record.Record { return nil },
			expected: true,
			changes:  detect.DefaultBillFields(),
		},
		{
			name:     "typed nil snapshot is a first sighting",
			fresh:    vote(),
			stored:   func() record.Record { return (*record.Vote)(nil) },
			expected: true,
			changes:  detect.DefaultVoteFields(),
		},
		{
			name:  "identical bill",
			fresh: bill(),
			stored: func() record.Record {
				return bill()
			},
			expected: false,
		},
		{
			name:  "only bookkeeping differs",
			fresh: bill(),
			stored: func() record.Record {
				b := bill()
				published := introduced.Add(time.Hour)
				b.PublishedRef = "t3_abc123"
				b.PublishedAt = &published
				b.Tracking = true
				b.Revision = 4
				return b
			},
			expected: false,
		},
		{
			name:  "only informational fields differ",
			fresh: bill(),
			stored: func() record.Record {
				b := bill()
				b.Sponsor = "Someone Else"
				b.Cosponsors = 12
				return b
			},
			expected: false,
		},
		{
			name: "same vote references in another order",
			fresh: func() record.Record {
				b := bill()
				b.Votes = []record.VoteRef{{ID: "house-115-1-699"}, {ID: "house-115-1-637"}}
				return b
			}(),
			stored: func() record.Record {
				b := bill()
				b.Votes = []record.VoteRef{{ID: "house-115-1-637"}, {ID: "house-115-1-699"}}
				return b
			},
			expected: false,
		},
		{
			name:  "vote reference added",
			fresh: func() record.Record {
				b := bill()
				b.AddVote("house-115-1-699")
				return b
			}(),
			stored:   func() record.Record { return bill() },
			expected: true,
			changes:  []string{"votes"},
		},
		{
			name:  "status changed",
			fresh: bill(),
			stored: func() record.Record {
				b := bill()
				b.Status = record.StatusPassedHouse
				return b
			},
			expected: true,
			changes:  []string{"status"},
		},
		{
			name:  "new timeline entry and vote",
			fresh: bill(),
			stored: func() record.Record {
				b := bill()
				b.Timeline = b.Timeline.Add(introduced.Add(24*time.Hour), "Referred")
				b.AddVote("senate-115-1-303")
				return b
			},
			expected: true,
			changes:  []string{"votes", "timeline"},
		},
		{
			name:  "nil and empty subjects are equal",
			fresh: func() record.Record { b := bill(); b.Subjects = nil; return b }(),
			stored: func() record.Record {
				b := bill()
				b.Subjects = []string{}
				return b
			},
			expected: false,
		},
		{
			name:  "same instant in another zone is equal",
			fresh: bill(),
			stored: func() record.Record {
				b := bill()
				b.Introduced = introduced.In(time.FixedZone("EST", -5*3600))
				return b
			},
			expected: false,
		},
		{
			name:  "vote tally changed",
			fresh: vote(),
			stored: func() record.Record {
				v := vote()
				v.Tallies["republican"] = record.Tally{Yes: 226, No: 14}
				return v
			},
			expected: true,
			changes:  []string{"tallies"},
		},
		{
			name:  "vote description is not published",
			fresh: vote(),
			stored: func() record.Record {
				v := vote()
				v.Description = "changed"
				return v
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stored := tt.stored()
			freshBefore := tt.fresh.Clone()

			assert.Equal(t, tt.expected, d.NeedsPublish(tt.fresh, stored))
			assert.Equal(t, tt.changes, d.Changes(tt.fresh, stored))
			assert.Equal(t, freshBefore, tt.fresh, "detector never mutates its input")
		})
	}
}

func TestDetector_CustomFields(t *testing.T) {
	t.Parallel()

	d, err := detect.New(detect.WithBillFields("title", "status"))
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "status"}, d.Fields(record.KindBill))
	assert.Equal(t, detect.DefaultVoteFields(), d.Fields(record.KindVote))

	stored := bill()
	stored.Summary = "different summary"
	assert.False(t, d.NeedsPublish(bill(), stored), "summary is not compared")

	stored.Title = "different title"
	assert.True(t, d.NeedsPublish(bill(), stored))
}

func TestNew_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := detect.New(detect.WithVoteFields("question", "publishedRef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"publishedRef"`)
}
