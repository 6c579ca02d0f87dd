package shop

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateShop(ctx context.Context, s *Shop) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shops (id,name,address,city,is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.Name, s.Address, s.City, s.IsActive)
	return err
}

func (r *postgresRepo) GetShopByID(ctx context.Context, id string) (*Shop, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s := &Shop{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id,name,address,city,is_active,created_at,updated_at
		FROM shops WHERE id=$1`, uid).
		Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) ListShops(ctx context.Context) ([]*Shop, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,name,address,city,is_active,created_at,updated_at
		FROM shops ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shops []*Shop
	for rows.Next() {
		s := &Shop{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		shops = append(shops, s)
	}
	return shops, rows.Err()
}

func (r *postgresRepo) SetActive(ctx context.Context, id string, active bool) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE shops SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, uid)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("shop %s not found", id)
	}
	return nil
}
