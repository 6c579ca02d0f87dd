package intake

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// LineItem is one product line of an incoming delivery.
type LineItem struct {
	ProductID        uuid.UUID `json:"product_id"`
	RequiredQuantity int       `json:"required_quantity"`
	UnitCost         float64   `json:"unit_cost"`
}

// Distribution allocates each line item's quantity across shops.
// Outer key is the line item index, inner key the shop id. It exists only
// for the duration of a validate/commit call and is never persisted.
type Distribution map[int]map[uuid.UUID]int

// LineStatus classifies one line item's allocation.
type LineStatus string

const (
	LineComplete       LineStatus = "COMPLETE"
	LineNotDistributed LineStatus = "NOT_DISTRIBUTED"
	LinePartial        LineStatus = "PARTIAL"
	LineOver           LineStatus = "OVER"
)

// Validation errors.
var (
	ErrNoShopsConfigured   = errors.New("no shops configured for distribution")
	ErrNegativeAllocation  = errors.New("allocated quantity must not be negative")
	ErrUnknownShop         = errors.New("distribution references a shop outside the candidate set")
	ErrUnknownLineItem     = errors.New("distribution references an unknown line item")
	ErrNonPositiveRequired = errors.New("required quantity must be a positive integer")
)

// LineError describes why a line item's allocation is not exact.
type LineError struct {
	Status      LineStatus `json:"status"`
	ProductID   uuid.UUID  `json:"product_id"`
	Distributed int        `json:"distributed"`
	Required    int        `json:"required"`
}

func (e *LineError) Error() string {
	switch e.Status {
	case LineNotDistributed:
		return fmt.Sprintf("product %s: quantity not distributed", e.ProductID)
	case LinePartial:
		return fmt.Sprintf("product %s: distributed %d of required %d", e.ProductID, e.Distributed, e.Required)
	case LineOver:
		return fmt.Sprintf("product %s: distributed %d exceeds required %d", e.ProductID, e.Distributed, e.Required)
	}
	return fmt.Sprintf("product %s: invalid distribution", e.ProductID)
}

// DistributionRequest is the wire form of an intake distribution.
// Distribution maps line item index (as a string) to shop id to quantity.
type DistributionRequest struct {
	Items        []RequestLineItem         `json:"items"`
	Shops        []string                  `json:"shops"`
	Distribution map[string]map[string]int `json:"distribution"`
}

// RequestLineItem is one incoming product line as received on the wire.
type RequestLineItem struct {
	ProductID        string  `json:"product_id"`
	RequiredQuantity int     `json:"required_quantity"`
	UnitCost         float64 `json:"unit_cost"`
}
