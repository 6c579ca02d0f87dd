package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks on-hand and reserved stock for one product at one shop.
// Rows are created lazily on first movement into the (product, shop) pair and
// never deleted; a depleted row stays at zero.
//
// Invariant: 0 <= ReservedQuantity <= Quantity.
type InventoryItem struct {
	ProductID        uuid.UUID `json:"product_id"`
	ShopID           uuid.UUID `json:"shop_id"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	Cost             float64   `json:"cost"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available returns the quantity eligible for new outgoing transfers.
func (i *InventoryItem) Available() int {
	return i.Quantity - i.ReservedQuantity
}

// ErrItemNotFound is returned when no ledger row exists for a (product, shop) pair.
var ErrItemNotFound = errors.New("inventory item not found")

// InsufficientInventoryError reports a reservation that exceeds what a shop
// has available for a product.
type InsufficientInventoryError struct {
	ProductID uuid.UUID `json:"product_id"`
	Required  int       `json:"required"`
	Available int       `json:"available"`
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %s: required %d, available %d",
		e.ProductID, e.Required, e.Available)
}
