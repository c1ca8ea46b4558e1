package order

import (
	"context"
	"errors"
	"strings"

	"tanitrust/wallet"
)

// Store defines the data access required by the service.
type Store interface {
	UpdateStatus(ctx context.Context, id string, status *Status) (Record, error)
	Insert(ctx context.Context, p SyncParams) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, f Filter) ([]Listing, error)
}

type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Sync mirrors an order after its contract transaction confirmed. An existing
// order only has its status updated; a new one requires every field and
// defaults to Escrowed.
func (s *Service) Sync(ctx context.Context, p SyncParams) (Record, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return Record{}, ErrInvalidInput
	}
	if p.Status != nil && !p.Status.Valid() {
		return Record{}, ErrInvalidStatus
	}

	rec, err := s.repo.UpdateStatus(ctx, p.ID, p.Status)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	p.ProductID = strings.TrimSpace(p.ProductID)
	p.Buyer = wallet.Normalize(p.Buyer)
	p.Farmer = wallet.Normalize(p.Farmer)
	if p.ProductID == "" || p.Buyer == "" || p.Farmer == "" ||
		!p.Quantity.Set || !p.TotalPrice.Set || !p.Deadline.Set {
		return Record{}, ErrInvalidInput
	}
	return s.repo.Insert(ctx, p)
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Listing, error) {
	f.Buyer = wallet.Normalize(f.Buyer)
	f.Farmer = wallet.Normalize(f.Farmer)
	return s.repo.List(ctx, f)
}
