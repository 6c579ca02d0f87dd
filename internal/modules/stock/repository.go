package stock

import (
	"context"

	"github.com/google/uuid"
)

// Ledger is the read-only view of inventory levels.
// Mutations go through the transactional helpers in this package so that
// every write carries its availability guard.
type Ledger interface {
	// GetItem returns the ledger row for a (product, shop) pair,
	// or ErrItemNotFound when no stock has ever moved into the pair.
	GetItem(ctx context.Context, productID, shopID uuid.UUID) (*InventoryItem, error)

	// ListByShop returns every ledger row held at a shop.
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]*InventoryItem, error)
}
