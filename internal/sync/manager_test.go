package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fivethreefive/legisync/internal/clock"
	"github.com/fivethreefive/legisync/internal/credential"
	"github.com/fivethreefive/legisync/internal/detect"
	"github.com/fivethreefive/legisync/internal/record"
	"github.com/fivethreefive/legisync/internal/store"
	pkgsync "github.com/fivethreefive/legisync/internal/sync"
	"github.com/fivethreefive/legisync/internal/sync/mocks"
	"github.com/fivethreefive/legisync/internal/upstream"
)

var (
	passStart = time.Date(2017, 12, 19, 0, 0, 0, 0, time.UTC)
	cursor    = pkgsync.Cursor{Start: passStart, End: passStart.Add(24 * time.Hour)}
)

// fakeUpstream serves fresh copies of its records on every pass.
type fakeUpstream struct {
	votes    []*record.Vote
	bills    map[string]*record.Bill
	voteErrs map[string]error
}

func (f *fakeUpstream) summaries() []upstream.VoteSummary {
	out := make([]upstream.VoteSummary, 0, len(f.votes))
	for _, v := range f.votes {
		out = append(out, upstream.VoteSummary{
			Chamber: v.Chamber, Congress: v.Congress, Session: v.Session, RollCall: v.RollCall, BillID: v.BillID,
		})
	}
	return out
}

func (f *fakeUpstream) expect(source *mocks.MockSource) {
	source.EXPECT().ListVotes(gomock.Any(), "house", cursor.Start, cursor.End).
		DoAndReturn(func(context.Context, string, time.Time, time.Time) ([]upstream.VoteSummary, error) {
			return f.summaries(), nil
		}).AnyTimes()
	source.EXPECT().FetchVote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s upstream.VoteSummary) (*record.Vote, error) {
			if err := f.voteErrs[s.ID()]; err != nil {
				return nil, err
			}
			for _, v := range f.votes {
				if v.ID == s.ID() {
					return v.Clone().(*record.Vote), nil
				}
			}
			return nil, errors.New("unknown vote")
		}).AnyTimes()
	source.EXPECT().FetchBill(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*record.Bill, error) {
			b, ok := f.bills[id]
			if !ok {
				return nil, &upstream.MalformedRecordError{Kind: record.KindBill, ID: id, Field: "title"}
			}
			return b.Clone().(*record.Bill), nil
		}).AnyTimes()
}

func newVote(roll int, billID string) *record.Vote {
	return &record.Vote{
		Bookkeeping: record.Bookkeeping{Tracking: true},
		ID:          record.VoteID("house", 115, 1, roll),
		Chamber:     "house",
		Congress:    115,
		Session:     1,
		RollCall:    roll,
		Question:    "On Passage",
		Result:      record.ResultPassed,
		Tallies:     map[string]record.Tally{"republican": {Yes: 227, No: 13}},
		BillID:      billID,
	}
}

func newBill(id string) *record.Bill {
	return &record.Bill{
		Bookkeeping: record.Bookkeeping{Tracking: true},
		ID:          id,
		Congress:    115,
		Chamber:     "house",
		Title:       "Tax Cuts and Jobs Act",
		Type:        "house bill",
		Status:      record.StatusPassedHouse,
		Introduced:  time.Date(2017, 11, 2, 4, 0, 0, 0, time.UTC),
		Subjects:    []string{"Taxation"},
	}
}

type harness struct {
	source    *mocks.MockSource
	publisher *mocks.MockPublisher
	store     *store.FileStore
	clock     *clock.Fake
	manager   pkgsync.Manager
}

func newHarness(t *testing.T, up *fakeUpstream, opts ...pkgsync.Option) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	detector, err := detect.New()
	require.NoError(t, err)

	h := &harness{
		source:    mocks.NewMockSource(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		store:     st,
		clock:     clock.NewFake(passStart.Add(25 * time.Hour)),
	}
	up.expect(h.source)

	opts = append([]pkgsync.Option{
		pkgsync.WithChambers("house"),
		pkgsync.WithClock(h.clock),
		pkgsync.WithSaveRetry(3, func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	h.manager = pkgsync.NewDefaultSyncManager(h.source, h.publisher, st, detector, opts...)
	return h
}

// refs hands out t3_1, t3_2, ... per publish.
func refs() func(context.Context, record.Record) (record.Ref, error) {
	n := 0
	return func(context.Context, record.Record) (record.Ref, error) {
		n++
		return record.Ref("t3_" + string(rune('0'+n))), nil
	}
}

func TestPerformPass_PublishesThenIsIdempotent(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{
		votes: []*record.Vote{newVote(10, "hr1-115")},
		bills: map[string]*record.Bill{"hr1-115": newBill("hr1-115")},
	}
	h := newHarness(t, up)
	ctx := context.Background()

	h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(refs()).Times(2)

	first, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Candidates)
	assert.Equal(t, 2, first.Published)
	assert.Zero(t, first.Failed)
	assert.NotEmpty(t, first.PassID)

	vote, err := h.store.LoadVote(ctx, "house-115-1-10")
	require.NoError(t, err)
	assert.Equal(t, record.Ref("t3_1"), vote.PublishedRef)
	assert.Equal(t, 1, vote.Revision)
	require.NotNil(t, vote.PublishedAt)
	assert.Equal(t, h.clock.Now(), *vote.PublishedAt)

	bill, err := h.store.LoadBill(ctx, "hr1-115")
	require.NoError(t, err)
	assert.Equal(t, record.Ref("t3_2"), bill.PublishedRef)
	assert.Equal(t, []record.VoteRef{{ID: "house-115-1-10"}}, bill.Votes)

	// no publisher calls are allowed from here on
	second, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Unchanged)
	assert.Zero(t, second.Published+second.Amended+second.Failed)
}

func TestPerformPass_KeepsStoredVoteReferences(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{
		votes: []*record.Vote{newVote(10, "hr1-115")},
		bills: map[string]*record.Bill{"hr1-115": newBill("hr1-115")},
	}
	h := newHarness(t, up)
	ctx := context.Background()

	h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(refs()).Times(3)
	_, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)

	// vote 10 left the cursor and the bill detail does not list it yet
	up.votes = []*record.Vote{newVote(11, "hr1-115")}
	h.publisher.EXPECT().Amend(gomock.Any(), record.Ref("t3_2"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ record.Ref, rec record.Record) error {
			assert.Equal(t, []record.VoteRef{{ID: "house-115-1-10"}, {ID: "house-115-1-11"}}, rec.(*record.Bill).Votes)
			return nil
		}).Times(1)

	second, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Published)
	assert.Equal(t, 1, second.Amended)

	bill, err := h.store.LoadBill(ctx, "hr1-115")
	require.NoError(t, err)
	assert.Equal(t, []record.VoteRef{{ID: "house-115-1-10"}, {ID: "house-115-1-11"}}, bill.Votes)
	assert.Equal(t, 2, bill.Revision)

	// the provider now lists both votes, in another order
	up.bills["hr1-115"].Votes = []record.VoteRef{{ID: "house-115-1-11"}, {ID: "house-115-1-10"}}
	third, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Unchanged)
	assert.Zero(t, third.Published+third.Amended+third.Failed)

	bill, err = h.store.LoadBill(ctx, "hr1-115")
	require.NoError(t, err)
	assert.Equal(t, 2, bill.Revision)
}

func TestPerformPass_AmendsChangedRecord(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{votes: []*record.Vote{newVote(11, "")}}
	h := newHarness(t, up)
	ctx := context.Background()

	h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(record.Ref("t3_abc"), nil)
	_, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)

	up.votes[0].Result = record.ResultFailed
	up.votes[0].Description = "informational only"
	h.clock.Advance(time.Hour)

	h.publisher.EXPECT().Amend(gomock.Any(), record.Ref("t3_abc"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ record.Ref, rec record.Record) error {
			assert.Equal(t, record.ResultFailed, rec.(*record.Vote).Result)
			return nil
		})
	res, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Amended)

	vote, err := h.store.LoadVote(ctx, "house-115-1-11")
	require.NoError(t, err)
	assert.Equal(t, record.Ref("t3_abc"), vote.PublishedRef)
	assert.Equal(t, 2, vote.Revision)
	assert.Equal(t, record.ResultFailed, vote.Result)
	require.NotNil(t, vote.AmendedAt)
	assert.Equal(t, h.clock.Now(), *vote.AmendedAt)
}

func TestPerformPass_FailedRecordIsRetriedNextPass(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{votes: []*record.Vote{newVote(1, ""), newVote(2, ""), newVote(3, "")}}
	h := newHarness(t, up)
	ctx := context.Background()

	failing := "house-115-1-1"
	published := map[string]int{}
	h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec record.Record) (record.Ref, error) {
			id := rec.Key().ID
			published[id]++
			if id == failing && published[id] == 1 {
				return "", errors.New("submit failed")
			}
			return record.Ref("t3_" + id), nil
		}).Times(4)

	first, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Published)
	assert.Equal(t, 1, first.Failed)
	require.Len(t, first.Failures, 1)
	assert.Equal(t, failing, first.Failures[0].Key.ID)
	assert.Equal(t, pkgsync.PhaseActing, first.Failures[0].Phase)

	_, err = h.store.LoadVote(ctx, failing)
	assert.True(t, store.IsNotFound(err))

	second, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Published)
	assert.Equal(t, 2, second.Unchanged)

	third, err := h.manager.PerformPass(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 3, third.Unchanged)
	assert.Equal(t, map[string]int{"house-115-1-1": 2, "house-115-1-2": 1, "house-115-1-3": 1}, published)
}

func TestPerformPass_AuthErrorAbortsPass(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{votes: []*record.Vote{newVote(1, ""), newVote(2, "")}}
	h := newHarness(t, up)
	ctx := context.Background()

	authErr := &credential.AuthError{StatusCode: 401, Err: errors.New("invalid_grant")}
	h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(record.Ref(""), authErr).Times(1)

	_, err := h.manager.PerformPass(ctx, cursor)
	require.Error(t, err)
	assert.True(t, credential.IsAuthError(err))

	keys, err := h.store.List(ctx, record.KindVote)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPerformPass_ListFailureAbortsBeforeAnyWork(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	recordStore := mocks.NewMockRecordStore(ctrl)
	detector, err := detect.New()
	require.NoError(t, err)

	source.EXPECT().ListVotes(gomock.Any(), "house", cursor.Start, cursor.End).
		Return([]upstream.VoteSummary{{Chamber: "house", Congress: 115, Session: 1, RollCall: 1}}, nil)
	source.EXPECT().ListVotes(gomock.Any(), "senate", cursor.Start, cursor.End).
		Return(nil, errors.New("503"))

	m := pkgsync.NewDefaultSyncManager(source, publisher, recordStore, detector)
	_, err = m.PerformPass(context.Background(), cursor)
	assert.ErrorContains(t, err, "listing senate votes")
}

func TestPerformPass_PersistenceFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	recordStore := mocks.NewMockRecordStore(ctrl)
	detector, err := detect.New()
	require.NoError(t, err)

	up := &fakeUpstream{votes: []*record.Vote{newVote(7, "")}}
	up.expect(source)
	key := record.Key{Kind: record.KindVote, ID: "house-115-1-7"}

	recordStore.EXPECT().Load(gomock.Any(), key).Return(nil, store.ErrNotFound)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(record.Ref("t3_7"), nil)
	recordStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(2)

	m := pkgsync.NewDefaultSyncManager(source, publisher, recordStore, detector,
		pkgsync.WithChambers("house"),
		pkgsync.WithSaveRetry(2, func() backoff.BackOff { return &backoff.ZeroBackOff{} }))

	res, err := m.PerformPass(context.Background(), cursor)
	require.NoError(t, err)
	assert.Zero(t, res.Published)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, pkgsync.PhasePersisting, res.Failures[0].Phase)

	var persistErr *store.PersistenceError
	require.ErrorAs(t, res.Failures[0].Err, &persistErr)
	assert.Equal(t, key, persistErr.Key)
}

func TestPerformPass_RecordLocalFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		up             *fakeUpstream
		publishes      int
		expectedFailed []record.Key
		expectedPhase  pkgsync.Phase
	}{
		{
			name: "vote detail fetch failure",
			up: &fakeUpstream{
				votes:    []*record.Vote{newVote(1, ""), newVote(2, "")},
				voteErrs: map[string]error{"house-115-1-1": &upstream.MalformedRecordError{Kind: record.KindVote, Field: "result"}},
			},
			publishes:      1,
			expectedFailed: []record.Key{{Kind: record.KindVote, ID: "house-115-1-1"}},
			expectedPhase:  pkgsync.PhaseFetching,
		},
		{
			name: "malformed bill does not block its vote",
			up: &fakeUpstream{
				votes: []*record.Vote{newVote(1, "hr9-115")},
				bills: map[string]*record.Bill{},
			},
			publishes:      1,
			expectedFailed: []record.Key{{Kind: record.KindBill, ID: "hr9-115"}},
			expectedPhase:  pkgsync.PhaseFetching,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.up, pkgsync.WithWorkers(4))
			h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(record.Ref("t3_x"), nil).Times(tt.publishes)

			res, err := h.manager.PerformPass(context.Background(), cursor)
			require.NoError(t, err)
			assert.Equal(t, tt.publishes, res.Published)
			require.Len(t, res.Failures, len(tt.expectedFailed))
			for i, key := range tt.expectedFailed {
				assert.Equal(t, key, res.Failures[i].Key)
				assert.Equal(t, tt.expectedPhase, res.Failures[i].Phase)
			}
		})
	}
}

func TestPerformPass_StoredSnapshots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		stored        func() *record.Vote
		expectPublish bool
		expectAmend   bool
		expectSkipped bool
	}{
		{
			name: "untracked record is skipped",
			stored: func() *record.Vote {
				v := newVote(5, "")
				v.Tracking = false
				v.PublishedRef = "t3_old"
				v.Result = record.ResultFailed
				return v
			},
			expectSkipped: true,
		},
		{
			name: "snapshot without a reference is published",
			stored: func() *record.Vote {
				return newVote(5, "")
			},
			expectPublish: true,
		},
		{
			name: "changed snapshot with a reference is amended",
			stored: func() *record.Vote {
				v := newVote(5, "")
				v.PublishedRef = "t3_old"
				v.Question = "On Motion to Recommit"
				return v
			},
			expectAmend: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, &fakeUpstream{votes: []*record.Vote{newVote(5, "")}})
			ctx := context.Background()
			require.NoError(t, h.store.Save(ctx, tt.stored()))

			if tt.expectPublish {
				h.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(record.Ref("t3_new"), nil)
			}
			if tt.expectAmend {
				h.publisher.EXPECT().Amend(gomock.Any(), record.Ref("t3_old"), gomock.Any()).Return(nil)
			}

			res, err := h.manager.PerformPass(ctx, cursor)
			require.NoError(t, err)
			assert.Equal(t, tt.expectPublish, res.Published == 1)
			assert.Equal(t, tt.expectAmend, res.Amended == 1)
			assert.Equal(t, tt.expectSkipped, res.Skipped == 1)

			if tt.expectSkipped {
				stored, err := h.store.LoadVote(ctx, "house-115-1-5")
				require.NoError(t, err)
				assert.False(t, stored.Tracking)
				assert.Equal(t, record.ResultFailed, stored.Result)
			}
		})
	}
}
