package intake

import (
	"context"
	"database/sql"

	"github.com/lusakastack/shopstock-backend/internal/modules/stock"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Commit(ctx context.Context, items []LineItem, dist Distribution) error {
	return stock.RunTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, item := range items {
			for shopID, qty := range dist[i] {
				if qty <= 0 {
					continue
				}
				if err := stock.Add(ctx, tx, item.ProductID, shopID, qty, item.UnitCost); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
