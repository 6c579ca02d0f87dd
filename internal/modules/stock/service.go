package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lusakastack/shopstock-backend/internal/cache"
)

const levelsTTL = 30 * time.Second

// Service exposes inventory level queries. List results go through the
// best-effort cache; the ledger stays authoritative.
type Service interface {
	ShopLevels(ctx context.Context, shopID string) ([]*InventoryItem, error)
	ProductLevel(ctx context.Context, shopID, productID string) (*InventoryItem, error)
}

type service struct {
	ledger Ledger
	cache  cache.Store
}

// NewService creates a new stock query service.
func NewService(ledger Ledger, cacheStore cache.Store) Service {
	return &service{ledger: ledger, cache: cacheStore}
}

func (s *service) ShopLevels(ctx context.Context, shopID string) ([]*InventoryItem, error) {
	sid, err := uuid.Parse(shopID)
	if err != nil {
		return nil, fmt.Errorf("invalid shop_id: %w", err)
	}

	key := cache.ShopKey(sid)
	var cached []*InventoryItem
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stock: cache read failed")
	} else if hit {
		return cached, nil
	}

	items, err := s.ledger.ListByShop(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, items, levelsTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stock: cache write failed")
	}
	return items, nil
}

func (s *service) ProductLevel(ctx context.Context, shopID, productID string) (*InventoryItem, error) {
	sid, err := uuid.Parse(shopID)
	if err != nil {
		return nil, fmt.Errorf("invalid shop_id: %w", err)
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	return s.ledger.GetItem(ctx, pid, sid)
}
