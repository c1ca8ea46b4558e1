package product

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"tanitrust/amount"
)

// DefaultFulfillmentHours applies when a sync omits fulfillment_time.
const DefaultFulfillmentHours = 24

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Record mirrors the products table. Numerics serialise as decimal strings.
type Record struct {
	ID              string      `json:"sui_object_id"`
	Name            string      `json:"name"`
	PricePerUnit    sdkmath.Int `json:"price_per_unit"`
	Stock           sdkmath.Int `json:"stock"`
	FarmerAddress   string      `json:"farmer_address"`
	ImageURL        string      `json:"image_url"`
	ImageCID        *string     `json:"image_cid"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	FulfillmentTime sdkmath.Int `json:"fulfillment_time"`
	IsDeleted       bool        `json:"is_deleted"`
	DeletedAt       *time.Time  `json:"deleted_at"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// SyncParams is the body of a product sync.
type SyncParams struct {
	ID              string      `json:"sui_object_id"`
	Name            string      `json:"name"`
	PricePerUnit    amount.Flex `json:"price_per_unit"`
	Stock           amount.Flex `json:"stock"`
	FarmerAddress   string      `json:"farmer_address"`
	ImageURL        string      `json:"image_url"`
	ImageCID        *string     `json:"image_cid"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	FulfillmentTime amount.Flex `json:"fulfillment_time"`
}

// Sort orders a product listing.
type Sort string

const (
	SortLatest    Sort = "latest"
	SortOldest    Sort = "oldest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

func (s Sort) orderBy() string {
	switch s {
	case SortOldest:
		return "created_at ASC, id"
	case SortPriceAsc:
		return "price_per_unit ASC, id"
	case SortPriceDesc:
		return "price_per_unit DESC, id"
	default:
		return "created_at DESC, id"
	}
}

// ListParams filters and pages a listing.
type ListParams struct {
	FarmerAddress  string
	Category       string
	IncludeDeleted bool
	Sort           Sort
	Limit          int
	Offset         int
}

// Page is one slice of a listing plus the total match count.
type Page struct {
	Items   []Record
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}
