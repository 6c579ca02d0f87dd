package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable item referenced by the stock ledger.
type Product struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductRequest holds data for registering a product.
type CreateProductRequest struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}
