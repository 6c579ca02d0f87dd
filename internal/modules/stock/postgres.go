package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type postgresLedger struct{ db *sql.DB }

func NewPostgresLedger(db *sql.DB) Ledger { return &postgresLedger{db: db} }

func (r *postgresLedger) GetItem(ctx context.Context, productID, shopID uuid.UUID) (*InventoryItem, error) {
	i := &InventoryItem{}
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id,shop_id,quantity,reserved_quantity,cost,created_at,updated_at
		FROM inventory_items WHERE product_id=$1 AND shop_id=$2`, productID, shopID).
		Scan(&i.ProductID, &i.ShopID, &i.Quantity, &i.ReservedQuantity, &i.Cost,
			&i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory item: %w", err)
	}
	return i, nil
}

func (r *postgresLedger) ListByShop(ctx context.Context, shopID uuid.UUID) ([]*InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id,shop_id,quantity,reserved_quantity,cost,created_at,updated_at
		FROM inventory_items WHERE shop_id=$1 ORDER BY product_id`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*InventoryItem
	for rows.Next() {
		i := &InventoryItem{}
		if err := rows.Scan(&i.ProductID, &i.ShopID, &i.Quantity, &i.ReservedQuantity,
			&i.Cost, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// RunTx is the unit of work for ledger mutations: fn's writes commit together
// or not at all. fn must only touch the database through the passed tx.
func RunTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Reserve commits qty units at a shop to an outgoing transfer. The guard in
// the WHERE clause makes the availability check and the write one atomic
// statement: concurrent reservations against the same row serialize on it,
// and the loser sees zero rows affected instead of a corrupted count.
func Reserve(ctx context.Context, tx *sql.Tx, productID, shopID uuid.UUID, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET reserved_quantity = reserved_quantity + $1, updated_at = NOW()
		WHERE product_id = $2 AND shop_id = $3 AND reserved_quantity + $1 <= quantity`,
		qty, productID, shopID)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		available := 0
		err := tx.QueryRowContext(ctx, `
			SELECT quantity - reserved_quantity FROM inventory_items
			WHERE product_id=$1 AND shop_id=$2`, productID, shopID).Scan(&available)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read availability: %w", err)
		}
		return &InsufficientInventoryError{ProductID: productID, Required: qty, Available: available}
	}
	return nil
}

// Release returns qty reserved units to availability. On-hand quantity is
// untouched: the stock never left the shop.
func Release(ctx context.Context, tx *sql.Tx, productID, shopID uuid.UUID, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET reserved_quantity = reserved_quantity - $1, updated_at = NOW()
		WHERE product_id = $2 AND shop_id = $3 AND reserved_quantity >= $1`,
		qty, productID, shopID)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("release stock: reservation underflow for product %s at shop %s", productID, shopID)
	}
	return nil
}

// Deduct removes qty previously reserved units from a shop: on-hand quantity
// and the reservation drop together.
func Deduct(ctx context.Context, tx *sql.Tx, productID, shopID uuid.UUID, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity - $1, reserved_quantity = reserved_quantity - $1, updated_at = NOW()
		WHERE product_id = $2 AND shop_id = $3 AND reserved_quantity >= $1 AND quantity >= $1`,
		qty, productID, shopID)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("deduct stock: no reserved stock for product %s at shop %s", productID, shopID)
	}
	return nil
}

// Add upserts qty arriving units at a shop. A missing row is created with the
// given unit cost; an existing row keeps its cost and only gains quantity.
func Add(ctx context.Context, tx *sql.Tx, productID, shopID uuid.UUID, qty int, unitCost float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_items (product_id, shop_id, quantity, reserved_quantity, cost)
		VALUES ($1,$2,$3,0,$4)
		ON CONFLICT (product_id, shop_id)
		DO UPDATE SET quantity = inventory_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		productID, shopID, qty, unitCost)
	if err != nil {
		return fmt.Errorf("add stock: %w", err)
	}
	return nil
}
