package transfer

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines transfer persistence. Every mutating method is atomic:
// the transfer rows and the ledger adjustments they imply commit or roll
// back together, and the status check happens inside the same transaction
// as the status write.
type Repository interface {
	// Create persists a PENDING transfer with its items and reserves each
	// item's quantity at the source shop in one transaction.
	Create(ctx context.Context, t *Transfer) error

	// Complete moves reserved stock out of the source and into the
	// destination, then marks the transfer COMPLETED. Fails with
	// ErrInvalidStateTransition unless the transfer is PENDING.
	Complete(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// Cancel releases the reservation and marks the transfer CANCELLED.
	Cancel(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// Delete releases the reservation and removes a PENDING transfer and its
	// items. Returns the removed transfer.
	Delete(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// GetByID retrieves a transfer with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// List returns transfers newest first, optionally filtered by status.
	List(ctx context.Context, status Status) ([]*Transfer, error)
}
