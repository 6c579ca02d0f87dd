package transfer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transfer. PENDING is the only
// non-terminal state; COMPLETED and CANCELLED admit no further transitions.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transfer moves stock from one shop to another. While PENDING the items'
// quantities are reserved at the source; completion physically moves them,
// cancellation releases them.
type Transfer struct {
	ID                uuid.UUID  `json:"id"`
	SourceShopID      uuid.UUID  `json:"source_shop_id"`
	DestinationShopID uuid.UUID  `json:"destination_shop_id"`
	Status            Status     `json:"status"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	Items             []*Item    `json:"items,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Item is a single product line within a transfer. UnitCost is a snapshot of
// the source shop's ledger cost taken at creation time; it is never re-read.
type Item struct {
	ID         uuid.UUID `json:"id"`
	TransferID uuid.UUID `json:"transfer_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	UnitCost   float64   `json:"unit_cost"`
}

// CreateTransferRequest is the payload for starting a transfer.
type CreateTransferRequest struct {
	SourceShopID      string        `json:"source_shop_id"`
	DestinationShopID string        `json:"destination_shop_id"`
	Items             []RequestItem `json:"items"`
}

// RequestItem is one requested product line.
type RequestItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Validation and state errors. All are reported before or instead of any
// ledger mutation, never after a partial one.
var (
	ErrInvalidShopPair        = errors.New("source and destination shops must differ")
	ErrEmptyItems             = errors.New("transfer must contain at least one item")
	ErrNonPositiveQuantity    = errors.New("item quantity must be a positive integer")
	ErrDuplicateProduct       = errors.New("duplicate product line in transfer")
	ErrShopNotFound           = errors.New("shop not found")
	ErrShopInactive           = errors.New("shop is not active")
	ErrProductNotFound        = errors.New("product not found")
	ErrInvalidStateTransition = errors.New("transfer is not pending")
	ErrNotFound               = errors.New("transfer not found")
)
