package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"tanitrust/amount"
)

var (
	ErrNotFound     = errors.New("product: not found")
	ErrInvalidInput = errors.New("product: missing required fields")
	ErrInvalidQuery = errors.New("product: invalid query")
)

const productColumns = `id, name, price_per_unit::text, stock::text, farmer_address, image_url, image_cid,
	description, category, fulfillment_time::text, is_deleted, deleted_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec                       Record
		price, stock, fulfillment string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &price, &stock, &rec.FarmerAddress, &rec.ImageURL, &rec.ImageCID,
		&rec.Description, &rec.Category, &fulfillment, &rec.IsDeleted, &rec.DeletedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}

	var err error
	if rec.PricePerUnit, err = amount.Parse(price); err != nil {
		return Record{}, fmt.Errorf("product: price_per_unit: %w", err)
	}
	if rec.Stock, err = amount.Parse(stock); err != nil {
		return Record{}, fmt.Errorf("product: stock: %w", err)
	}
	if rec.FulfillmentTime, err = amount.Parse(fulfillment); err != nil {
		return Record{}, fmt.Errorf("product: fulfillment_time: %w", err)
	}
	return rec, nil
}

// Upsert writes every mutable field. Deletion state is left untouched.
func (r *Repository) Upsert(ctx context.Context, p SyncParams) (Record, error) {
	const query = `
		INSERT INTO products (id, name, price_per_unit, stock, farmer_address, image_url, image_cid,
		                      description, category, fulfillment_time)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, $6, $7, $8, $9, $10::text::numeric)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    price_per_unit = EXCLUDED.price_per_unit,
		    stock = EXCLUDED.stock,
		    farmer_address = EXCLUDED.farmer_address,
		    image_url = EXCLUDED.image_url,
		    image_cid = EXCLUDED.image_cid,
		    description = EXCLUDED.description,
		    category = EXCLUDED.category,
		    fulfillment_time = EXCLUDED.fulfillment_time,
		    updated_at = now()
		RETURNING ` + productColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.PricePerUnit.Value.String(), p.Stock.Value.String(), p.FarmerAddress,
		p.ImageURL, p.ImageCID, p.Description, p.Category, p.FulfillmentTime.Value.String(),
	))
	if err != nil {
		return Record{}, fmt.Errorf("product: upsert: %w", err)
	}
	return rec, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("product: get: %w", err)
	}
	return rec, nil
}

// SoftDelete flags the row. The first deletion time is kept on repeats.
func (r *Repository) SoftDelete(ctx context.Context, id string) (Record, error) {
	const query = `
		UPDATE products
		SET is_deleted = TRUE,
		    deleted_at = COALESCE(deleted_at, now()),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("product: soft delete: %w", err)
	}
	return rec, nil
}

// List fetches the page and the total match count concurrently.
func (r *Repository) List(ctx context.Context, p ListParams) ([]Record, int, error) {
	where := " WHERE 1 = 1"
	args := make([]any, 0, 4)
	if !p.IncludeDeleted {
		where += " AND is_deleted = FALSE"
	}
	if p.FarmerAddress != "" {
		args = append(args, p.FarmerAddress)
		where += fmt.Sprintf(" AND farmer_address = $%d", len(args))
	}
	if p.Category != "" {
		args = append(args, p.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}

	var (
		items []Record
		total int
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		query := `SELECT ` + productColumns + ` FROM products` + where +
			` ORDER BY ` + p.Sort.orderBy() +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		pageArgs := append(append(make([]any, 0, len(args)+2), args...), p.Limit, p.Offset)

		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("product: list: %w", err)
		}
		defer rows.Close()

		out := make([]Record, 0, p.Limit)
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return fmt.Errorf("product: scan: %w", err)
			}
			out = append(out, rec)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("product: iterate: %w", err)
		}
		items = out
		return nil
	})

	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("product: count: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
