package intake

import "context"

// Repository applies validated distributions to the stock ledger.
type Repository interface {
	// Commit increments destination inventory for every allocated quantity
	// in one transaction, creating missing (product, shop) rows with the
	// line item's unit cost.
	Commit(ctx context.Context, items []LineItem, dist Distribution) error
}
