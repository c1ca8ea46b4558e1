package order

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"tanitrust/amount"
	"tanitrust/dispute"
)

// Status mirrors the on-chain escrow state of an order.
type Status int16

const (
	StatusEscrowed  Status = 1
	StatusCompleted Status = 2
	StatusRefunded  Status = 3
)

func (s Status) Valid() bool {
	return s >= StatusEscrowed && s <= StatusRefunded
}

// Record mirrors the orders table. Numerics serialise as decimal strings.
type Record struct {
	ID         string      `json:"sui_object_id"`
	ProductID  string      `json:"product_id"`
	Buyer      string      `json:"buyer"`
	Farmer     string      `json:"farmer"`
	Quantity   sdkmath.Int `json:"quantity"`
	TotalPrice sdkmath.Int `json:"total_price"`
	Deadline   sdkmath.Int `json:"deadline"`
	Status     Status      `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ProductSummary is the subset of the product joined into order listings.
type ProductSummary struct {
	ID           string      `json:"sui_object_id"`
	Name         string      `json:"name"`
	ImageURL     string      `json:"image_url"`
	PricePerUnit sdkmath.Int `json:"price_per_unit"`
	Stock        sdkmath.Int `json:"stock"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
}

// Listing is an order with its product and dispute, either of which may be absent.
type Listing struct {
	Record
	Product *ProductSummary `json:"product"`
	Dispute *dispute.Record `json:"dispute"`
}

// Filter narrows List by party. Empty fields match everything.
type Filter struct {
	Buyer  string
	Farmer string
}

// SyncParams is the body of an order sync. On an existing order only Status
// is applied.
type SyncParams struct {
	ID         string      `json:"sui_object_id"`
	ProductID  string      `json:"product_id"`
	Buyer      string      `json:"buyer"`
	Farmer     string      `json:"farmer"`
	Quantity   amount.Flex `json:"quantity"`
	TotalPrice amount.Flex `json:"total_price"`
	Deadline   amount.Flex `json:"deadline"`
	Status     *Status     `json:"status"`
}
