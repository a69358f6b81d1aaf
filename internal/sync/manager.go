package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fivethreefive/legisync/internal/clock"
	"github.com/fivethreefive/legisync/internal/credential"
	"github.com/fivethreefive/legisync/internal/detect"
	legiotel "github.com/fivethreefive/legisync/internal/otel"
	"github.com/fivethreefive/legisync/internal/record"
	"github.com/fivethreefive/legisync/internal/store"
	"github.com/fivethreefive/legisync/internal/telemetry"
	"github.com/fivethreefive/legisync/internal/upstream"
)

//go:generate mockgen -destination=mocks/mock_sync.go -package=mocks github.com/fivethreefive/legisync/internal/sync Source,Publisher,RecordStore,Manager

const (
	// DefaultSaveTries bounds snapshot save attempts per record
	DefaultSaveTries = 3
)

// Source reads records from upstream.
type Source interface {
	ListVotes(ctx context.Context, chamber string, start, end time.Time) ([]upstream.VoteSummary, error)
	FetchVote(ctx context.Context, summary upstream.VoteSummary) (*record.Vote, error)
	FetchBill(ctx context.Context, billID string) (*record.Bill, error)
}

// Publisher creates and edits posts.
type Publisher interface {
	Publish(ctx context.Context, rec record.Record) (record.Ref, error)
	Amend(ctx context.Context, ref record.Ref, rec record.Record) error
}

// RecordStore holds the last published snapshot per record.
type RecordStore interface {
	Load(ctx context.Context, key record.Key) (record.Record, error)
	Save(ctx context.Context, rec record.Record) error
}

// Manager runs passes.
type Manager interface {
	// PerformPass processes every record upstream reports within cursor
	PerformPass(ctx context.Context, cursor Cursor) (*Result, error)
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	source    Source
	publisher Publisher
	store     RecordStore
	detector  *detect.Detector

	chambers   []string
	workers    int
	saveTries  uint
	newBackOff func() backoff.BackOff
	clock      clock.Clock
	tracer     trace.Tracer
	metrics    *telemetry.SyncMetrics
}

// Option configures the manager.
type Option func(*defaultSyncManager)

// WithChambers sets the chambers listed each pass.
func WithChambers(chambers ...string) Option {
	return func(m *defaultSyncManager) {
		if len(chambers) > 0 {
			m.chambers = chambers
		}
	}
}

// WithWorkers bounds parallel detail fetches.
func WithWorkers(n int) Option {
	return func(m *defaultSyncManager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithSaveRetry sets the attempt limit and schedule of snapshot saves.
func WithSaveRetry(tries uint, newBackOff func() backoff.BackOff) Option {
	return func(m *defaultSyncManager) {
		if tries > 0 {
			m.saveTries = tries
		}
		if newBackOff != nil {
			m.newBackOff = newBackOff
		}
	}
}

// WithClock sets the clock used for bookkeeping timestamps.
func WithClock(c clock.Clock) Option {
	return func(m *defaultSyncManager) {
		m.clock = c
	}
}

// WithTracer traces passes and record actions.
func WithTracer(t trace.Tracer) Option {
	return func(m *defaultSyncManager) {
		m.tracer = t
	}
}

// WithMetrics records per-pass outcome counts.
func WithMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(m *defaultSyncManager) {
		m.metrics = metrics
	}
}

// NewDefaultSyncManager creates a Manager.
func NewDefaultSyncManager(source Source, publisher Publisher, st RecordStore, detector *detect.Detector, opts ...Option) Manager {
	m := &defaultSyncManager{
		source:    source,
		publisher: publisher,
		store:     st,
		detector:  detector,
		chambers:  []string{"house", "senate"},
		workers:   1,
		saveTries: DefaultSaveTries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerformPass implements Manager.
func (m *defaultSyncManager) PerformPass(ctx context.Context, cursor Cursor) (res *Result, err error) {
	res = &Result{PassID: uuid.NewString(), Cursor: cursor}
	logger := slog.With("pass", res.PassID)

	ctx, span := legiotel.StartSpan(ctx, m.tracer, "sync.pass",
		trace.WithAttributes(legiotel.AttrPassID.String(res.PassID)))
	defer func() {
		legiotel.RecordError(span, err)
		span.End()
	}()

	logger.Info("Starting pass", "start", cursor.Start, "end", cursor.End)

	votes, bills, err := m.fetch(ctx, logger, res)
	if err != nil {
		return res, err
	}
	span.SetAttributes(legiotel.AttrCandidates.Int(res.Candidates))

	for _, v := range votes {
		if err := m.process(ctx, logger, res, v); err != nil {
			return res, err
		}
	}
	for _, b := range bills {
		if err := m.process(ctx, logger, res, b); err != nil {
			return res, err
		}
	}

	m.recordOutcomes(ctx, res)
	logger.Info("Pass complete",
		"candidates", res.Candidates,
		"published", res.Published,
		"amended", res.Amended,
		"unchanged", res.Unchanged,
		"skipped", res.Skipped,
		"failed", res.Failed)
	return res, nil
}

// fetch lists and fetches candidates. Only listing and credential failures are
// returned; any other failure is recorded against its record.
func (m *defaultSyncManager) fetch(ctx context.Context, logger *slog.Logger, res *Result) ([]*record.Vote, []*record.Bill, error) {
	logger.Debug("Phase", "phase", PhaseFetching)

	var summaries []upstream.VoteSummary
	seen := map[string]bool{}
	for _, chamber := range m.chambers {
		listed, err := m.source.ListVotes(ctx, chamber, res.Cursor.Start, res.Cursor.End)
		if err != nil {
			return nil, nil, fmt.Errorf("listing %s votes: %w", chamber, err)
		}
		for _, s := range listed {
			if !seen[s.ID()] {
				seen[s.ID()] = true
				summaries = append(summaries, s)
			}
		}
	}

	fetchedVotes := make([]*record.Vote, len(summaries))
	errs, err := m.fetchAll(ctx, len(summaries), func(ctx context.Context, i int) (err error) {
		fetchedVotes[i], err = m.source.FetchVote(ctx, summaries[i])
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	for i, err := range errs {
		if err != nil {
			m.fetchFailure(logger, res, record.Key{Kind: record.KindVote, ID: summaries[i].ID()}, err)
			fetchedVotes[i] = nil
		}
	}

	var votes []*record.Vote
	var billIDs []string
	wanted := map[string]bool{}
	for _, v := range fetchedVotes {
		if v == nil {
			continue
		}
		votes = append(votes, v)
		if v.BillID != "" && !wanted[v.BillID] {
			wanted[v.BillID] = true
			billIDs = append(billIDs, v.BillID)
		}
	}

	fetchedBills := make([]*record.Bill, len(billIDs))
	errs, err = m.fetchAll(ctx, len(billIDs), func(ctx context.Context, i int) (err error) {
		fetchedBills[i], err = m.source.FetchBill(ctx, billIDs[i])
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	for i, err := range errs {
		if err != nil {
			m.fetchFailure(logger, res, record.Key{Kind: record.KindBill, ID: billIDs[i]}, err)
			fetchedBills[i] = nil
		}
	}

	var bills []*record.Bill
	for _, b := range fetchedBills {
		if b == nil {
			continue
		}
		for _, v := range votes {
			if v.BillID == b.ID {
				b.AddVote(v.ID)
			}
		}
		bills = append(bills, b)
	}

	res.Candidates = len(summaries) + len(billIDs)
	return votes, bills, nil
}

// fetchAll runs fn for 0..n-1 with bounded parallelism and returns the record-local
// error of each index. A pass-aborting error cancels the rest and is returned alone.
func (m *defaultSyncManager) fetchAll(ctx context.Context, n int, fn func(ctx context.Context, i int) error) ([]error, error) {
	errs := make([]error, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range n {
		g.Go(func() error {
			err := fn(gctx, i)
			if err != nil && abortsPass(err) {
				return err
			}
			errs[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return errs, nil
}

func (m *defaultSyncManager) fetchFailure(logger *slog.Logger, res *Result, key record.Key, err error) {
	logger.Warn("Fetch failed, record deferred to next pass",
		"record", key.String(), "phase", PhaseFetching, "error", err)
	res.fail(key, PhaseFetching, err)
}

func abortsPass(err error) bool {
	return credential.IsAuthError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// process moves one fresh record through RESOLVING to PERSISTING. Only pass-aborting
// errors are returned.
func (m *defaultSyncManager) process(ctx context.Context, logger *slog.Logger, res *Result, fresh record.Record) error {
	key := fresh.Key()
	logger = logger.With("record", key.String())

	logger.Debug("Phase", "phase", PhaseResolving)
	stored, err := m.store.Load(ctx, key)
	switch {
	case store.IsNotFound(err):
		stored = nil
	case err != nil:
		logger.Warn("Load failed, record deferred to next pass", "phase", PhaseResolving, "error", err)
		res.fail(key, PhaseResolving, err)
		return nil
	}

	if stored != nil && !stored.Book().Tracking {
		logger.Debug("Record is no longer tracked, skipping")
		res.Skipped++
		res.record(key, OutcomeSkipped)
		return nil
	}

	// References already posted stay on the bill even when upstream no longer lists them.
	if bill, ok := fresh.(*record.Bill); ok {
		if prev, ok := stored.(*record.Bill); ok && prev != nil {
			bill.MergeVotes(prev.Votes)
		}
	}

	logger.Debug("Phase", "phase", PhaseDeciding)
	if stored != nil && stored.Book().Published() && !m.detector.NeedsPublish(fresh, stored) {
		res.Unchanged++
		res.record(key, OutcomeUnchanged)
		return nil
	}

	merged := fresh.Clone()
	book := merged.Book()
	if stored != nil {
		*book = *stored.Clone().Book()
	}
	book.Tracking = true

	logger.Debug("Phase", "phase", PhaseActing)
	outcome, err := m.act(ctx, merged)
	if err != nil {
		if abortsPass(err) {
			return err
		}
		logger.Error("Publish action failed, record deferred to next pass", "phase", PhaseActing, "error", err)
		res.fail(key, PhaseActing, err)
		return nil
	}

	logger.Debug("Phase", "phase", PhasePersisting)
	if err := m.save(ctx, merged); err != nil {
		logger.Error("Snapshot save failed after publish action", "phase", PhasePersisting, "error", err)
		res.fail(key, PhasePersisting, err)
		return nil
	}

	if outcome == OutcomePublished {
		res.Published++
	} else {
		res.Amended++
	}
	res.record(key, outcome)
	logger.Info("Record synced", "action", outcome, "ref", book.PublishedRef, "revision", book.Revision)
	return nil
}

// act publishes or amends rec and updates its bookkeeping.
func (m *defaultSyncManager) act(ctx context.Context, rec record.Record) (outcome Outcome, err error) {
	key := rec.Key()
	book := rec.Book()
	outcome = OutcomeAmended
	if !book.Published() {
		outcome = OutcomePublished
	}

	ctx, span := legiotel.StartSpan(ctx, m.tracer, "sync.record", trace.WithAttributes(
		legiotel.AttrRecordKind.String(string(key.Kind)),
		legiotel.AttrRecordID.String(key.ID),
		legiotel.AttrRecordAction.String(string(outcome)),
	))
	defer func() {
		legiotel.RecordError(span, err)
		span.End()
	}()

	now := m.clock.Now().UTC()
	if outcome == OutcomePublished {
		ref, err := m.publisher.Publish(ctx, rec)
		if err != nil {
			return "", err
		}
		book.PublishedRef = ref
		book.PublishedAt = &now
		span.SetAttributes(attribute.String("publish.ref", string(ref)))
	} else {
		if err := m.publisher.Amend(ctx, book.PublishedRef, rec); err != nil {
			return "", err
		}
		book.AmendedAt = &now
	}
	book.Revision++
	return outcome, nil
}

// save persists rec, retrying transient failures.
func (m *defaultSyncManager) save(ctx context.Context, rec record.Record) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, m.store.Save(ctx, rec)
	},
		backoff.WithBackOff(m.newBackOff()),
		backoff.WithMaxTries(m.saveTries),
	)
	if err == nil {
		return nil
	}
	var persistErr *store.PersistenceError
	if errors.As(err, &persistErr) {
		return err
	}
	return &store.PersistenceError{Op: "save", Key: rec.Key(), Err: err}
}

func (m *defaultSyncManager) recordOutcomes(ctx context.Context, res *Result) {
	if m.metrics == nil {
		return
	}
	for kind, outcomes := range res.byKind {
		for outcome, n := range outcomes {
			m.metrics.RecordOutcome(ctx, string(kind), string(outcome), n)
		}
	}
}
