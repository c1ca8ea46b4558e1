package product

import (
	"context"
	"strings"

	sdkmath "cosmossdk.io/math"

	"tanitrust/amount"
	"tanitrust/wallet"
)

// Store defines the data access required by the service.
type Store interface {
	Upsert(ctx context.Context, p SyncParams) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	SoftDelete(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, p ListParams) ([]Record, int, error)
}

type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Sync creates or overwrites the product mirror.
func (s *Service) Sync(ctx context.Context, p SyncParams) (Record, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.FarmerAddress = wallet.Normalize(p.FarmerAddress)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	p.Category = strings.TrimSpace(p.Category)
	if p.ID == "" || p.Name == "" || p.FarmerAddress == "" || p.ImageURL == "" ||
		strings.TrimSpace(p.Description) == "" || p.Category == "" ||
		!p.PricePerUnit.Set || !p.Stock.Set {
		return Record{}, ErrInvalidInput
	}
	if !p.FulfillmentTime.Set || p.FulfillmentTime.Value.IsZero() {
		p.FulfillmentTime = amount.Of(sdkmath.NewInt(DefaultFulfillmentHours))
	}
	if p.ImageCID != nil && strings.TrimSpace(*p.ImageCID) == "" {
		p.ImageCID = nil
	}
	return s.repo.Upsert(ctx, p)
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the product. Deleting twice succeeds; an unknown id is ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	return s.repo.SoftDelete(ctx, id)
}

// List returns one page of products. Zero Limit means DefaultLimit.
func (s *Service) List(ctx context.Context, p ListParams) (Page, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Sort == "" {
		p.Sort = SortLatest
	}
	p.FarmerAddress = wallet.Normalize(p.FarmerAddress)
	p.Category = strings.TrimSpace(p.Category)

	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:   items,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}, nil
}
