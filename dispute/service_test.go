package dispute

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBuyer  = "0xbuyer"
	testFarmer = "0xfarmer"
)

func newTestService(t *testing.T) (*Service, *fakePool, *memStore) {
	t.Helper()
	pool := &fakePool{}
	store := newMemStore()
	store.orders["order-1"] = 1
	obs := &countingObserver{}
	svc := NewService(pool, store, WithObserver(obs))

	_, err := svc.Create(context.Background(), CreateParams{ID: "dispute-1", OrderID: "order-1", Buyer: testBuyer, Farmer: testFarmer})
	require.NoError(t, err)
	return svc, pool, store
}

func propose(t *testing.T, svc *Service, n int) []ProposalResult {
	t.Helper()
	out := make([]ProposalResult, 0, n)
	for i := 0; i < n; i++ {
		proposer := testBuyer
		if i%2 == 1 {
			proposer = testFarmer
		}
		res, err := svc.Propose(context.Background(), ProposeParams{DisputeID: "dispute-1", FarmerPercentage: 50 + i, BuyerPercentage: 50 - i, Proposer: proposer})
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func TestCreate_OrderMissing(t *testing.T) {
	svc := NewService(&fakePool{}, newMemStore())
	_, err := svc.Create(context.Background(), CreateParams{ID: "d", OrderID: "nope", Buyer: "a", Farmer: "b"})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCreate_Duplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateParams{ID: "dispute-1", OrderID: "order-1", Buyer: testBuyer, Farmer: testFarmer})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreate_StartsPending(t *testing.T) {
	svc, pool, _ := newTestService(t)
	require.True(t, pool.tx.committed)

	rec, err := svc.Get(context.Background(), "dispute-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Zero(t, rec.ProposalCount)
	assert.False(t, rec.VotingEnabled)
	assert.Zero(t, rec.TotalVotes())
}

func TestPropose_ActivationEdge(t *testing.T) {
	svc, _, _ := newTestService(t)
	results := propose(t, svc, 5)

	for i, res := range results {
		count := i + 1
		assert.Equal(t, count, res.Record.ProposalCount, "proposal %d", count)
		assert.Equal(t, count == 3, res.VotingActivated, "activated on proposal %d", count)
		assert.Equal(t, count >= 3, res.Record.VotingEnabled, "voting enabled after proposal %d", count)
	}

	last := results[len(results)-1].Record
	assert.Equal(t, 54, last.FarmerPercentage)
	assert.Equal(t, 46, last.BuyerPercentage)
	require.NotNil(t, last.LastProposer)
	assert.Equal(t, testBuyer, *last.LastProposer)
}

func TestPropose_InvalidSplitSkipsStore(t *testing.T) {
	svc, pool, store := newTestService(t)
	pool.tx = nil

	_, err := svc.Propose(context.Background(), ProposeParams{DisputeID: "dispute-1", FarmerPercentage: 70, BuyerPercentage: 40, Proposer: testBuyer})
	assert.ErrorIs(t, err, ErrInvalidSplit)
	assert.Nil(t, pool.tx, "no transaction should be opened for invalid input")
	assert.Zero(t, store.disputes["dispute-1"].ProposalCount)
}

func TestPropose_NotFoundRollsBack(t *testing.T) {
	svc, pool, _ := newTestService(t)
	_, err := svc.Propose(context.Background(), ProposeParams{DisputeID: "missing", FarmerPercentage: 50, BuyerPercentage: 50, Proposer: testBuyer})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, pool.tx.rolled)
	assert.False(t, pool.tx.committed)
}

func TestVote_RejectedBeforeActivation(t *testing.T) {
	svc, _, store := newTestService(t)
	propose(t, svc, 2)

	_, err := svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: "0xc", Direction: DirectionFor})
	assert.ErrorIs(t, err, ErrVotingDisabled)

	rec := store.disputes["dispute-1"]
	assert.Zero(t, rec.VotesFor)
	assert.Zero(t, rec.VotesAgainst)
	assert.Empty(t, store.votes["dispute-1"])
}

func TestVote_PartiesExcluded(t *testing.T) {
	svc, _, store := newTestService(t)
	propose(t, svc, 3)

	for _, voter := range []string{testBuyer, testFarmer, "  0xBUYER "} {
		_, err := svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: voter, Direction: DirectionFor})
		assert.ErrorIs(t, err, ErrPartyVote, voter)
	}
	assert.Zero(t, store.disputes["dispute-1"].TotalVotes())
}

func TestVote_TallyCounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	propose(t, svc, 3)

	const forVotes, againstVotes = 4, 3
	var last VoteResult
	for i := 0; i < forVotes+againstVotes; i++ {
		dir := DirectionFor
		if i >= forVotes {
			dir = DirectionAgainst
		}
		res, err := svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: fmt.Sprintf("0xvoter%d", i), Direction: dir})
		require.NoError(t, err)
		assert.Equal(t, i+1, res.TotalVotes)
		last = res
	}

	assert.Equal(t, forVotes, last.Record.VotesFor)
	assert.Equal(t, againstVotes, last.Record.VotesAgainst)

	status, err := svc.VotingStatus(context.Background(), "dispute-1")
	require.NoError(t, err)
	assert.Equal(t, VotingStatus{VotingEnabled: true, VotesFor: 4, VotesAgainst: 3, TotalVotes: 7, ProposalCount: 3}, status)
}

func TestVote_DuplicateRejected(t *testing.T) {
	svc, _, store := newTestService(t)
	propose(t, svc, 3)

	_, err := svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: "0xc", Direction: DirectionFor})
	require.NoError(t, err)
	_, err = svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: "0xC", Direction: DirectionAgainst})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	rec := store.disputes["dispute-1"]
	assert.Equal(t, 1, rec.VotesFor)
	assert.Zero(t, rec.VotesAgainst)
}

func TestVote_InvalidDirection(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: "0xc", Direction: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolve_CompletesOrderAndIsIdempotent(t *testing.T) {
	svc, _, store := newTestService(t)

	res, err := svc.Resolve(context.Background(), "dispute-1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, res.Dispute.Status)
	require.NotNil(t, res.Dispute.ResolvedAt)
	assert.Equal(t, int16(2), res.Order.Status)
	assert.Equal(t, "order-1", res.Order.ID)
	first := *res.Dispute.ResolvedAt

	again, err := svc.Resolve(context.Background(), "dispute-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, again.Dispute.Status)
	assert.Equal(t, first, *again.Dispute.ResolvedAt)

	resolvedEvents := 0
	for _, ev := range store.events["dispute-1"] {
		if ev.Type == EventResolved {
			resolvedEvents++
		}
	}
	assert.Equal(t, 1, resolvedEvents)
}

func TestResolve_OrderMismatch(t *testing.T) {
	svc, _, store := newTestService(t)
	_, err := svc.Resolve(context.Background(), "dispute-1", "order-2")
	assert.ErrorIs(t, err, ErrOrderMismatch)
	assert.Equal(t, StatusPending, store.disputes["dispute-1"].Status)
	assert.Equal(t, int16(1), store.orders["order-1"])
}

func TestResolvedDisputeRejectsProposalsAndVotes(t *testing.T) {
	svc, _, _ := newTestService(t)
	propose(t, svc, 3)
	_, err := svc.Resolve(context.Background(), "dispute-1", "order-1")
	require.NoError(t, err)

	_, err = svc.Propose(context.Background(), ProposeParams{DisputeID: "dispute-1", FarmerPercentage: 50, BuyerPercentage: 50, Proposer: testBuyer})
	assert.ErrorIs(t, err, ErrResolved)

	_, err = svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: "0xc", Direction: DirectionFor})
	assert.ErrorIs(t, err, ErrResolved)
}

func TestFullNegotiationScenario(t *testing.T) {
	svc, _, store := newTestService(t)
	obs := svc.obs.(*countingObserver)

	results := propose(t, svc, 3)
	assert.False(t, results[0].VotingActivated)
	assert.False(t, results[1].VotingActivated)
	assert.True(t, results[2].VotingActivated)

	for i, dir := range []Direction{DirectionFor, DirectionFor, DirectionAgainst} {
		_, err := svc.Vote(context.Background(), VoteParams{DisputeID: "dispute-1", Voter: fmt.Sprintf("0xv%d", i), Direction: dir})
		require.NoError(t, err)
	}

	res, err := svc.Resolve(context.Background(), "dispute-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dispute.VotesFor)
	assert.Equal(t, 1, res.Dispute.VotesAgainst)
	assert.Equal(t, int16(2), store.orders["order-1"])

	history, err := svc.History(context.Background(), "dispute-1")
	require.NoError(t, err)
	types := make([]EventType, 0, len(history))
	for i, ev := range history {
		assert.Equal(t, i+1, ev.Seq)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{
		EventOpened,
		EventProposal, EventProposal, EventProposal,
		EventVoteCast, EventVoteCast, EventVoteCast,
		EventResolved,
	}, types)

	assert.Equal(t, 3, obs.proposals)
	assert.Equal(t, 1, obs.activations)
	assert.Equal(t, 3, obs.votes)
	assert.Equal(t, 1, obs.resolutions)
}

func TestHistory_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBeginFailureIsWrapped(t *testing.T) {
	boom := errors.New("pool exhausted")
	svc := NewService(&fakePool{beginErr: boom}, newMemStore())
	_, err := svc.Propose(context.Background(), ProposeParams{DisputeID: "d", FarmerPercentage: 50, BuyerPercentage: 50, Proposer: "a"})
	assert.ErrorIs(t, err, boom)
}

type countingObserver struct {
	proposals, activations, votes, resolutions int
}

func (c *countingObserver) ProposalAccepted(activated bool) {
	c.proposals++
	if activated {
		c.activations++
	}
}

func (c *countingObserver) VoteCast(Direction) { c.votes++ }
func (c *countingObserver) DisputeResolved()   { c.resolutions++ }

// memStore mirrors the SQL statements in Repository closely enough to drive
// the service's transaction flow.
type memStore struct {
	disputes map[string]Record
	orders   map[string]int16
	votes    map[string]map[string]Direction
	events   map[string][]Event
	now      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		disputes: map[string]Record{},
		orders:   map[string]int16{},
		votes:    map[string]map[string]Direction{},
		events:   map[string][]Event{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memStore) Insert(_ context.Context, _ Querier, p CreateParams) (Record, error) {
	if _, ok := m.orders[p.OrderID]; !ok {
		return Record{}, ErrOrderNotFound
	}
	if _, ok := m.disputes[p.ID]; ok {
		return Record{}, ErrDuplicate
	}
	for _, rec := range m.disputes {
		if rec.OrderID == p.OrderID {
			return Record{}, ErrDuplicate
		}
	}
	now := m.tick()
	rec := Record{ID: p.ID, OrderID: p.OrderID, Buyer: p.Buyer, Farmer: p.Farmer, CreatedAt: now, UpdatedAt: now}
	m.disputes[p.ID] = rec
	return rec, nil
}

func (m *memStore) Get(_ context.Context, _ Querier, id string) (Record, error) {
	rec, ok := m.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, q Querier, id string) (Record, error) {
	return m.Get(ctx, q, id)
}

func (m *memStore) ApplyProposal(_ context.Context, _ Querier, p ProposeParams) (Record, error) {
	rec, ok := m.disputes[p.DisputeID]
	if !ok || rec.Status != StatusPending {
		return Record{}, ErrNotFound
	}
	proposer := p.Proposer
	rec.FarmerPercentage = p.FarmerPercentage
	rec.BuyerPercentage = p.BuyerPercentage
	rec.LastProposer = &proposer
	rec.VotingEnabled = rec.VotingEnabled || rec.ProposalCount+1 >= VotingThreshold
	rec.ProposalCount++
	rec.UpdatedAt = m.tick()
	m.disputes[p.DisputeID] = rec
	return rec, nil
}

func (m *memStore) InsertVote(_ context.Context, _ Querier, p VoteParams) error {
	if m.votes[p.DisputeID] == nil {
		m.votes[p.DisputeID] = map[string]Direction{}
	}
	if _, ok := m.votes[p.DisputeID][p.Voter]; ok {
		return ErrAlreadyVoted
	}
	m.votes[p.DisputeID][p.Voter] = p.Direction
	return nil
}

func (m *memStore) IncrementTally(_ context.Context, _ Querier, id string, d Direction) (Record, error) {
	rec, ok := m.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	switch d {
	case DirectionFor:
		rec.VotesFor++
	case DirectionAgainst:
		rec.VotesAgainst++
	}
	rec.UpdatedAt = m.tick()
	m.disputes[id] = rec
	return rec, nil
}

func (m *memStore) MarkResolved(_ context.Context, _ Querier, id string) (Record, error) {
	rec, ok := m.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	now := m.tick()
	rec.Status = StatusResolved
	if rec.ResolvedAt == nil {
		rec.ResolvedAt = &now
	}
	rec.UpdatedAt = now
	m.disputes[id] = rec
	return rec, nil
}

func (m *memStore) CompleteOrder(_ context.Context, _ Querier, orderID string) (OrderRef, error) {
	if _, ok := m.orders[orderID]; !ok {
		return OrderRef{}, ErrOrderNotFound
	}
	m.orders[orderID] = 2
	return OrderRef{ID: orderID, Status: 2, UpdatedAt: m.tick()}, nil
}

func (m *memStore) AppendEvent(_ context.Context, _ Querier, disputeID string, typ EventType, actor *string, _ map[string]any) error {
	evs := m.events[disputeID]
	m.events[disputeID] = append(evs, Event{Seq: len(evs) + 1, Type: typ, Actor: actor, Payload: []byte("{}"), CreatedAt: m.tick()})
	return nil
}

func (m *memStore) Events(_ context.Context, _ Querier, disputeID string) ([]Event, error) {
	return append([]Event(nil), m.events[disputeID]...), nil
}

type fakePool struct {
	tx       *fakeTx
	beginErr error
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.tx = &fakeTx{}
	return f.tx, nil
}

func (f *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakePool) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
