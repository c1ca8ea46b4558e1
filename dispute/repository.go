package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const recordColumns = `id, order_id, buyer, farmer, status, farmer_percentage, buyer_percentage,
	last_proposer, proposal_count, voting_enabled, votes_for, votes_against,
	created_at, updated_at, resolved_at`

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.OrderID, &rec.Buyer, &rec.Farmer, &rec.Status,
		&rec.FarmerPercentage, &rec.BuyerPercentage, &rec.LastProposer,
		&rec.ProposalCount, &rec.VotingEnabled, &rec.VotesFor, &rec.VotesAgainst,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ResolvedAt,
	)
	return rec, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Insert creates the dispute row. The order must already be mirrored.
func (r *Repository) Insert(ctx context.Context, q Querier, p CreateParams) (Record, error) {
	const query = `
		INSERT INTO disputes (id, order_id, buyer, farmer)
		SELECT $1::text, o.id, $3::text, $4::text
		FROM orders o
		WHERE o.id = $2
		RETURNING ` + recordColumns

	rec, err := scanRecord(q.QueryRow(ctx, query, p.ID, p.OrderID, p.Buyer, p.Farmer))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrOrderNotFound
		}
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, fmt.Errorf("dispute: insert: %w", err)
	}
	return rec, nil
}

func (r *Repository) Get(ctx context.Context, q Querier, id string) (Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM disputes WHERE id = $1`
	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: get: %w", err)
	}
	return rec, nil
}

// GetForUpdate reads the row and holds its lock until the transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, q Querier, id string) (Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: lock: %w", err)
	}
	return rec, nil
}

// ApplyProposal overwrites the split and bumps proposal_count server-side.
// voting_enabled latches once the count reaches the threshold.
func (r *Repository) ApplyProposal(ctx context.Context, q Querier, p ProposeParams) (Record, error) {
	const query = `
		UPDATE disputes
		SET farmer_percentage = $2,
		    buyer_percentage = $3,
		    last_proposer = $4,
		    proposal_count = proposal_count + 1,
		    voting_enabled = voting_enabled OR proposal_count + 1 >= $5,
		    updated_at = now()
		WHERE id = $1 AND status = 0
		RETURNING ` + recordColumns

	rec, err := scanRecord(q.QueryRow(ctx, query, p.DisputeID, p.FarmerPercentage, p.BuyerPercentage, p.Proposer, VotingThreshold))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: apply proposal: %w", err)
	}
	return rec, nil
}

func (r *Repository) InsertVote(ctx context.Context, q Querier, p VoteParams) error {
	const query = `INSERT INTO dispute_votes (dispute_id, voter, direction) VALUES ($1, $2, $3)`
	if _, err := q.Exec(ctx, query, p.DisputeID, p.Voter, string(p.Direction)); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("dispute: insert vote: %w", err)
	}
	return nil
}

// IncrementTally adds one to exactly one of votes_for / votes_against.
func (r *Repository) IncrementTally(ctx context.Context, q Querier, id string, d Direction) (Record, error) {
	const query = `
		UPDATE disputes
		SET votes_for = votes_for + CASE WHEN $2::text = 'for' THEN 1 ELSE 0 END,
		    votes_against = votes_against + CASE WHEN $2::text = 'against' THEN 1 ELSE 0 END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + recordColumns

	rec, err := scanRecord(q.QueryRow(ctx, query, id, string(d)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: increment tally: %w", err)
	}
	return rec, nil
}

// MarkResolved is idempotent; resolved_at keeps the first resolution time.
func (r *Repository) MarkResolved(ctx context.Context, q Querier, id string) (Record, error) {
	const query = `
		UPDATE disputes
		SET status = 1,
		    resolved_at = COALESCE(resolved_at, now()),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + recordColumns

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: resolve: %w", err)
	}
	return rec, nil
}

// CompleteOrder moves the order to Completed (2).
func (r *Repository) CompleteOrder(ctx context.Context, q Querier, orderID string) (OrderRef, error) {
	const query = `
		UPDATE orders
		SET status = 2, updated_at = now()
		WHERE id = $1
		RETURNING id, status, updated_at
	`

	var ref OrderRef
	if err := q.QueryRow(ctx, query, orderID).Scan(&ref.ID, &ref.Status, &ref.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderRef{}, ErrOrderNotFound
		}
		return OrderRef{}, fmt.Errorf("dispute: complete order: %w", err)
	}
	return ref, nil
}

// AppendEvent writes the next history entry. Callers hold the dispute row
// lock so seq allocation cannot race.
func (r *Repository) AppendEvent(ctx context.Context, q Querier, disputeID string, typ EventType, actor *string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dispute: marshal event payload: %w", err)
	}

	const query = `
		INSERT INTO dispute_events (dispute_id, seq, type, actor, payload)
		SELECT $1::text, COALESCE(MAX(seq), 0) + 1, $2::text, $3::text, $4::jsonb
		FROM dispute_events
		WHERE dispute_id = $1::text
	`
	if _, err := q.Exec(ctx, query, disputeID, string(typ), actor, payloadBytes); err != nil {
		return fmt.Errorf("dispute: append event: %w", err)
	}
	return nil
}

func (r *Repository) Events(ctx context.Context, q Querier, disputeID string) ([]Event, error) {
	const query = `
		SELECT seq, type, actor, payload, created_at
		FROM dispute_events
		WHERE dispute_id = $1
		ORDER BY seq
	`
	rows, err := q.Query(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute: events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0, 8)
	for rows.Next() {
		var (
			ev      Event
			typ     string
			payload []byte
		)
		if err := rows.Scan(&ev.Seq, &typ, &ev.Actor, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("dispute: scan event: %w", err)
		}
		ev.Type = EventType(typ)
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate events: %w", err)
	}
	return out, nil
}
