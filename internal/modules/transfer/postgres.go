package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lusakastack/shopstock-backend/internal/modules/stock"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Create inserts the transfer and its items and reserves each item at the
// source, all inside a single transaction. A failed reservation guard rolls
// back the inserts, so a rejected transfer leaves no trace.
func (r *postgresRepo) Create(ctx context.Context, t *Transfer) error {
	return stock.RunTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transfers (id, source_shop_id, destination_shop_id, status, created_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			t.ID, t.SourceShopID, t.DestinationShopID, t.Status, t.CreatedBy, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
		for _, item := range t.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO transfer_items (id, transfer_id, product_id, quantity, unit_cost)
				VALUES ($1,$2,$3,$4,$5)`,
				item.ID, t.ID, item.ProductID, item.Quantity, item.UnitCost)
			if err != nil {
				return fmt.Errorf("insert transfer_item: %w", err)
			}
			if err := stock.Reserve(ctx, tx, item.ProductID, t.SourceShopID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete claims the transfer with a conditional status flip, then applies
// the ledger movement. The flip and the movement share one transaction, so
// two concurrent completes cannot both move stock.
func (r *postgresRepo) Complete(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	var t *Transfer
	err := stock.RunTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE transfers SET status=$1, completed_at=$2 WHERE id=$3 AND status=$4`,
			StatusCompleted, time.Now(), id, StatusPending)
		if err != nil {
			return fmt.Errorf("update transfer status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.statusError(ctx, tx, id)
		}
		t, err = r.getTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, item := range t.Items {
			if err := stock.Deduct(ctx, tx, item.ProductID, t.SourceShopID, item.Quantity); err != nil {
				return err
			}
			if err := stock.Add(ctx, tx, item.ProductID, t.DestinationShopID, item.Quantity, item.UnitCost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepo) Cancel(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	var t *Transfer
	err := stock.RunTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE transfers SET status=$1 WHERE id=$2 AND status=$3`,
			StatusCancelled, id, StatusPending)
		if err != nil {
			return fmt.Errorf("update transfer status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.statusError(ctx, tx, id)
		}
		t, err = r.getTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, item := range t.Items {
			if err := stock.Release(ctx, tx, item.ProductID, t.SourceShopID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	var t *Transfer
	err := stock.RunTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		t, err = r.getTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		// The conditional delete is the claim; item rows go with it via
		// the cascade. Releasing afterwards is safe because items are
		// immutable once created.
		res, err := tx.ExecContext(ctx, `
			DELETE FROM transfers WHERE id=$1 AND status=$2`, id, StatusPending)
		if err != nil {
			return fmt.Errorf("delete transfer: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.statusError(ctx, tx, id)
		}
		for _, item := range t.Items {
			if err := stock.Release(ctx, tx, item.ProductID, t.SourceShopID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	return r.getTransfer(ctx, r.db, id)
}

func (r *postgresRepo) List(ctx context.Context, status Status) ([]*Transfer, error) {
	query := `SELECT id, source_shop_id, destination_shop_id, status, created_by, created_at, completed_at
	          FROM transfers`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transfers []*Transfer
	for rows.Next() {
		t := &Transfer{}
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.SourceShopID, &t.DestinationShopID, &t.Status,
			&t.CreatedBy, &t.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *postgresRepo) getTransfer(ctx context.Context, q queryer, id uuid.UUID) (*Transfer, error) {
	t := &Transfer{}
	var completedAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT id, source_shop_id, destination_shop_id, status, created_by, created_at, completed_at
		FROM transfers WHERE id=$1`, id).
		Scan(&t.ID, &t.SourceShopID, &t.DestinationShopID, &t.Status,
			&t.CreatedBy, &t.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transfer: %w", err)
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.Items, err = r.listItems(ctx, q, id)
	return t, err
}

func (r *postgresRepo) listItems(ctx context.Context, q queryer, transferID uuid.UUID) ([]*Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transfer_id, product_id, quantity, unit_cost
		FROM transfer_items WHERE transfer_id=$1 ORDER BY id`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.TransferID, &item.ProductID,
			&item.Quantity, &item.UnitCost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// statusError reports why a conditional status flip matched nothing: the
// transfer is either gone or already terminal.
func (r *postgresRepo) statusError(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var status Status
	err := tx.QueryRowContext(ctx, `SELECT status FROM transfers WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read transfer status: %w", err)
	}
	return fmt.Errorf("%w: transfer is %s", ErrInvalidStateTransition, status)
}
