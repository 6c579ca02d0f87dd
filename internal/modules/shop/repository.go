package shop

import "context"

// Repository defines shop data storage.
type Repository interface {
	CreateShop(ctx context.Context, s *Shop) error
	GetShopByID(ctx context.Context, id string) (*Shop, error)
	ListShops(ctx context.Context) ([]*Shop, error)
	SetActive(ctx context.Context, id string, active bool) error
}
