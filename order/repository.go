package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tanitrust/amount"
	"tanitrust/dispute"
)

var (
	ErrNotFound      = errors.New("order: not found")
	ErrInvalidInput  = errors.New("order: missing required fields")
	ErrInvalidStatus = errors.New("order: status must be 1, 2 or 3")
)

const orderColumns = `o.id, o.product_id, o.buyer, o.farmer, o.quantity::text, o.total_price::text,
	o.deadline::text, o.status, o.created_at, o.updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// numericText collects NUMERIC columns selected as ::text.
type numericText struct {
	quantity, totalPrice, deadline string
}

func (n numericText) apply(rec *Record) error {
	var err error
	if rec.Quantity, err = amount.Parse(n.quantity); err != nil {
		return fmt.Errorf("order: quantity: %w", err)
	}
	if rec.TotalPrice, err = amount.Parse(n.totalPrice); err != nil {
		return fmt.Errorf("order: total_price: %w", err)
	}
	if rec.Deadline, err = amount.Parse(n.deadline); err != nil {
		return fmt.Errorf("order: deadline: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec Record
		num numericText
	)
	if err := row.Scan(&rec.ID, &rec.ProductID, &rec.Buyer, &rec.Farmer, &num.quantity, &num.totalPrice,
		&num.deadline, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if err := num.apply(&rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// UpdateStatus touches an existing order. A nil status leaves it unchanged.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status *Status) (Record, error) {
	const query = `
		UPDATE orders o
		SET status = COALESCE($2::smallint, o.status),
		    updated_at = now()
		WHERE o.id = $1
		RETURNING ` + orderColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id, statusArg(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("order: update status: %w", err)
	}
	return rec, nil
}

// Insert creates the order. A concurrent sync that created it first wins and
// only the status is applied, matching the update path.
func (r *Repository) Insert(ctx context.Context, p SyncParams) (Record, error) {
	const query = `
		INSERT INTO orders AS o (id, product_id, buyer, farmer, quantity, total_price, deadline, status)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, COALESCE($8::smallint, 1))
		ON CONFLICT (id) DO UPDATE
		SET status = COALESCE($8::smallint, o.status),
		    updated_at = now()
		RETURNING ` + orderColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query,
		p.ID, p.ProductID, p.Buyer, p.Farmer,
		p.Quantity.Value.String(), p.TotalPrice.Value.String(), p.Deadline.Value.String(),
		statusArg(p.Status),
	))
	if err != nil {
		return Record{}, fmt.Errorf("order: insert: %w", err)
	}
	return rec, nil
}

func statusArg(s *Status) any {
	if s == nil {
		return nil
	}
	return int16(*s)
}

func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("order: get: %w", err)
	}
	return rec, nil
}

// List returns orders newest first, each joined with its product and dispute.
func (r *Repository) List(ctx context.Context, f Filter) ([]Listing, error) {
	query := `
		SELECT ` + orderColumns + `,
		       p.id, p.name, p.image_url, p.price_per_unit::text, p.stock::text, p.category, p.description,
		       d.id, d.order_id, d.buyer, d.farmer, d.status, d.farmer_percentage, d.buyer_percentage,
		       d.last_proposer, d.proposal_count, d.voting_enabled, d.votes_for, d.votes_against,
		       d.created_at, d.updated_at, d.resolved_at
		FROM orders o
		LEFT JOIN products p ON p.id = o.product_id
		LEFT JOIN disputes d ON d.order_id = o.id
		WHERE 1 = 1
	`
	args := make([]any, 0, 2)
	if f.Buyer != "" {
		args = append(args, f.Buyer)
		query += fmt.Sprintf(" AND o.buyer = $%d", len(args))
	}
	if f.Farmer != "" {
		args = append(args, f.Farmer)
		query += fmt.Sprintf(" AND o.farmer = $%d", len(args))
	}
	query += " ORDER BY o.created_at DESC, o.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()

	out := make([]Listing, 0, 16)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: iterate: %w", err)
	}
	return out, nil
}

func scanListing(rows pgx.Rows) (Listing, error) {
	var (
		l   Listing
		num numericText

		pID, pName, pImage, pPrice, pStock, pCategory, pDescription *string

		dID, dOrderID, dBuyer, dFarmer, dLastProposer *string
		dStatus, dFarmerPct, dBuyerPct                *int16
		dProposals, dVotesFor, dVotesAgainst          *int32
		dVoting                                       *bool
		dCreated, dUpdated, dResolved                 *time.Time
	)
	err := rows.Scan(
		&l.ID, &l.ProductID, &l.Buyer, &l.Farmer, &num.quantity, &num.totalPrice,
		&num.deadline, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		&pID, &pName, &pImage, &pPrice, &pStock, &pCategory, &pDescription,
		&dID, &dOrderID, &dBuyer, &dFarmer, &dStatus, &dFarmerPct, &dBuyerPct,
		&dLastProposer, &dProposals, &dVoting, &dVotesFor, &dVotesAgainst,
		&dCreated, &dUpdated, &dResolved,
	)
	if err != nil {
		return Listing{}, fmt.Errorf("order: scan: %w", err)
	}
	if err := num.apply(&l.Record); err != nil {
		return Listing{}, err
	}

	if pID != nil {
		price, err := amount.Parse(*pPrice)
		if err != nil {
			return Listing{}, fmt.Errorf("order: product price: %w", err)
		}
		stock, err := amount.Parse(*pStock)
		if err != nil {
			return Listing{}, fmt.Errorf("order: product stock: %w", err)
		}
		l.Product = &ProductSummary{
			ID:           *pID,
			Name:         *pName,
			ImageURL:     *pImage,
			PricePerUnit: price,
			Stock:        stock,
			Category:     *pCategory,
			Description:  *pDescription,
		}
	}

	if dID != nil {
		l.Dispute = &dispute.Record{
			ID:               *dID,
			OrderID:          *dOrderID,
			Buyer:            *dBuyer,
			Farmer:           *dFarmer,
			Status:           dispute.Status(*dStatus),
			FarmerPercentage: int(*dFarmerPct),
			BuyerPercentage:  int(*dBuyerPct),
			LastProposer:     dLastProposer,
			ProposalCount:    int(*dProposals),
			VotingEnabled:    *dVoting,
			VotesFor:         int(*dVotesFor),
			VotesAgainst:     int(*dVotesAgainst),
			CreatedAt:        *dCreated,
			UpdatedAt:        *dUpdated,
			ResolvedAt:       dResolved,
		}
	}
	return l, nil
}
