package dispute

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"tanitrust/wallet"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is the subset of *pgxpool.Pool the service needs.
type DB interface {
	TxBeginner
	Querier
}

// Store defines the data access required by the service.
type Store interface {
	Insert(ctx context.Context, q Querier, p CreateParams) (Record, error)
	Get(ctx context.Context, q Querier, id string) (Record, error)
	GetForUpdate(ctx context.Context, q Querier, id string) (Record, error)
	ApplyProposal(ctx context.Context, q Querier, p ProposeParams) (Record, error)
	InsertVote(ctx context.Context, q Querier, p VoteParams) error
	IncrementTally(ctx context.Context, q Querier, id string, d Direction) (Record, error)
	MarkResolved(ctx context.Context, q Querier, id string) (Record, error)
	CompleteOrder(ctx context.Context, q Querier, orderID string) (OrderRef, error)
	AppendEvent(ctx context.Context, q Querier, disputeID string, typ EventType, actor *string, payload map[string]any) error
	Events(ctx context.Context, q Querier, disputeID string) ([]Event, error)
}

// Observer receives committed transitions, typically for metrics.
type Observer interface {
	ProposalAccepted(votingActivated bool)
	VoteCast(d Direction)
	DisputeResolved()
}

type noopObserver struct{}

func (noopObserver) ProposalAccepted(bool) {}
func (noopObserver) VoteCast(Direction)    {}
func (noopObserver) DisputeResolved()      {}

type Option func(*Service)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithObserver(obs Observer) Option {
	return func(s *Service) {
		if obs != nil {
			s.obs = obs
		}
	}
}

type Service struct {
	db   DB
	repo Store
	log  zerolog.Logger
	obs  Observer
}

func NewService(db DB, repo Store, opts ...Option) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	s := &Service{
		db:   db,
		repo: repo,
		log:  zerolog.Nop(),
		obs:  noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create mirrors a freshly opened on-chain dispute.
func (s *Service) Create(ctx context.Context, p CreateParams) (Record, error) {
	p, err := p.normalize()
	if err != nil {
		return Record{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.Insert(ctx, tx, p)
	if err != nil {
		return Record{}, err
	}
	payload := map[string]any{"order_id": rec.OrderID, "buyer": rec.Buyer, "farmer": rec.Farmer}
	if err := s.repo.AppendEvent(ctx, tx, rec.ID, EventOpened, nil, payload); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	s.log.Info().Str("dispute_id", rec.ID).Str("order_id", rec.OrderID).Msg("dispute opened")
	return rec, nil
}

// Propose records a settlement proposal. The proposal that brings the count
// to VotingThreshold reports VotingActivated; later ones do not.
func (s *Service) Propose(ctx context.Context, p ProposeParams) (ProposalResult, error) {
	p.DisputeID = strings.TrimSpace(p.DisputeID)
	p.Proposer = wallet.Normalize(p.Proposer)
	if p.DisputeID == "" || p.Proposer == "" {
		return ProposalResult{}, ErrInvalidInput
	}
	if err := ValidateSplit(p.FarmerPercentage, p.BuyerPercentage); err != nil {
		return ProposalResult{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return ProposalResult{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, p.DisputeID)
	if err != nil {
		return ProposalResult{}, err
	}
	if err := current.CheckPropose(); err != nil {
		return ProposalResult{}, err
	}

	rec, err := s.repo.ApplyProposal(ctx, tx, p)
	if err != nil {
		return ProposalResult{}, err
	}
	activated := ActivatesVoting(rec.ProposalCount)

	payload := map[string]any{
		"farmer_percentage": rec.FarmerPercentage,
		"buyer_percentage":  rec.BuyerPercentage,
		"proposal_count":    rec.ProposalCount,
		"voting_activated":  activated,
	}
	if err := s.repo.AppendEvent(ctx, tx, rec.ID, EventProposal, &p.Proposer, payload); err != nil {
		return ProposalResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ProposalResult{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	s.obs.ProposalAccepted(activated)
	s.log.Info().
		Str("dispute_id", rec.ID).
		Int("proposal_count", rec.ProposalCount).
		Bool("voting_enabled", rec.VotingEnabled).
		Bool("voting_activated", activated).
		Msg("proposal recorded")
	return ProposalResult{Record: rec, VotingActivated: activated}, nil
}

// Vote records one community vote per address.
func (s *Service) Vote(ctx context.Context, p VoteParams) (VoteResult, error) {
	p.DisputeID = strings.TrimSpace(p.DisputeID)
	p.Voter = wallet.Normalize(p.Voter)
	if p.DisputeID == "" || p.Voter == "" {
		return VoteResult{}, ErrInvalidInput
	}
	dir, err := ParseDirection(string(p.Direction))
	if err != nil {
		return VoteResult{}, err
	}
	p.Direction = dir

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return VoteResult{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, p.DisputeID)
	if err != nil {
		return VoteResult{}, err
	}
	if err := current.CheckVote(p.Voter); err != nil {
		return VoteResult{}, err
	}
	if err := s.repo.InsertVote(ctx, tx, p); err != nil {
		return VoteResult{}, err
	}

	rec, err := s.repo.IncrementTally(ctx, tx, p.DisputeID, p.Direction)
	if err != nil {
		return VoteResult{}, err
	}
	payload := map[string]any{
		"direction":     p.Direction,
		"votes_for":     rec.VotesFor,
		"votes_against": rec.VotesAgainst,
	}
	if err := s.repo.AppendEvent(ctx, tx, rec.ID, EventVoteCast, &p.Voter, payload); err != nil {
		return VoteResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return VoteResult{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	s.obs.VoteCast(p.Direction)
	s.log.Info().
		Str("dispute_id", rec.ID).
		Str("direction", string(p.Direction)).
		Int("votes_for", rec.VotesFor).
		Int("votes_against", rec.VotesAgainst).
		Msg("vote recorded")
	return VoteResult{Record: rec, TotalVotes: rec.TotalVotes()}, nil
}

// Resolve marks the dispute resolved and its order completed. orderID may be
// empty, in which case the dispute's own order is used. Resolving twice
// re-applies the same state.
func (s *Service) Resolve(ctx context.Context, disputeID, orderID string) (ResolveResult, error) {
	disputeID = strings.TrimSpace(disputeID)
	orderID = strings.TrimSpace(orderID)
	if disputeID == "" {
		return ResolveResult{}, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return ResolveResult{}, err
	}
	if orderID != "" && orderID != current.OrderID {
		return ResolveResult{}, ErrOrderMismatch
	}

	rec, err := s.repo.MarkResolved(ctx, tx, disputeID)
	if err != nil {
		return ResolveResult{}, err
	}
	order, err := s.repo.CompleteOrder(ctx, tx, current.OrderID)
	if err != nil {
		return ResolveResult{}, err
	}

	firstResolution := current.Status != StatusResolved
	if firstResolution {
		payload := map[string]any{
			"order_id":          order.ID,
			"farmer_percentage": rec.FarmerPercentage,
			"buyer_percentage":  rec.BuyerPercentage,
			"votes_for":         rec.VotesFor,
			"votes_against":     rec.VotesAgainst,
		}
		if err := s.repo.AppendEvent(ctx, tx, rec.ID, EventResolved, nil, payload); err != nil {
			return ResolveResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ResolveResult{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	if firstResolution {
		s.obs.DisputeResolved()
	}
	s.log.Info().Str("dispute_id", rec.ID).Str("order_id", order.ID).Bool("first", firstResolution).Msg("dispute resolved")
	return ResolveResult{Dispute: rec, Order: order}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, s.db, id)
}

func (s *Service) VotingStatus(ctx context.Context, id string) (VotingStatus, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return VotingStatus{}, err
	}
	return VotingStatus{
		VotingEnabled: rec.VotingEnabled,
		VotesFor:      rec.VotesFor,
		VotesAgainst:  rec.VotesAgainst,
		TotalVotes:    rec.TotalVotes(),
		ProposalCount: rec.ProposalCount,
	}, nil
}

// History returns the dispute's events in sequence order.
func (s *Service) History(ctx context.Context, id string) ([]Event, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Events(ctx, s.db, rec.ID)
}
