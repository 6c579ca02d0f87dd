package intake

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lusakastack/shopstock-backend/internal/cache"
	"github.com/lusakastack/shopstock-backend/internal/modules/audit"
	"github.com/lusakastack/shopstock-backend/internal/modules/auth"
)

// Service validates and commits distributions of incoming stock across shops.
type Service interface {
	// Validate checks that every line item's allocation sums exactly to its
	// required quantity. A nil return means the distribution is valid;
	// otherwise the error describes the first violation in line-item order.
	Validate(ctx context.Context, req DistributionRequest) error

	// Commit re-validates and then applies the distribution to the ledger
	// atomically. Incoming stock is only added, never reserved.
	Commit(ctx context.Context, req DistributionRequest) error
}

type service struct {
	repo  Repository
	cache cache.Store
	audit audit.Recorder
}

// NewService creates a new intake service.
func NewService(repo Repository, cacheStore cache.Store, recorder audit.Recorder) Service {
	return &service{repo: repo, cache: cacheStore, audit: recorder}
}

func (s *service) Validate(ctx context.Context, req DistributionRequest) error {
	items, shops, dist, err := parseRequest(req)
	if err != nil {
		return err
	}
	return validate(items, shops, dist)
}

func (s *service) Commit(ctx context.Context, req DistributionRequest) error {
	items, shops, dist, err := parseRequest(req)
	if err != nil {
		return err
	}
	if err := validate(items, shops, dist); err != nil {
		return err
	}
	if err := s.repo.Commit(ctx, items, dist); err != nil {
		return err
	}
	s.afterCommit(ctx, dist)
	return nil
}

// validate applies the exact-allocation rules fail-fast in line-item order.
func validate(items []LineItem, shops []uuid.UUID, dist Distribution) error {
	if len(shops) == 0 {
		return ErrNoShopsConfigured
	}
	candidates := make(map[uuid.UUID]bool, len(shops))
	for _, id := range shops {
		candidates[id] = true
	}
	for i, item := range items {
		if item.RequiredQuantity <= 0 {
			return ErrNonPositiveRequired
		}
		distributed := 0
		for shopID, qty := range dist[i] {
			if qty < 0 {
				return ErrNegativeAllocation
			}
			if !candidates[shopID] {
				return ErrUnknownShop
			}
			distributed += qty
		}
		switch {
		case distributed == 0:
			return &LineError{Status: LineNotDistributed, ProductID: item.ProductID,
				Distributed: 0, Required: item.RequiredQuantity}
		case distributed < item.RequiredQuantity:
			return &LineError{Status: LinePartial, ProductID: item.ProductID,
				Distributed: distributed, Required: item.RequiredQuantity}
		case distributed > item.RequiredQuantity:
			return &LineError{Status: LineOver, ProductID: item.ProductID,
				Distributed: distributed, Required: item.RequiredQuantity}
		}
	}
	return nil
}

func parseRequest(req DistributionRequest) ([]LineItem, []uuid.UUID, Distribution, error) {
	items := make([]LineItem, 0, len(req.Items))
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid product_id: %w", err)
		}
		items = append(items, LineItem{
			ProductID:        productID,
			RequiredQuantity: line.RequiredQuantity,
			UnitCost:         line.UnitCost,
		})
	}

	shops := make([]uuid.UUID, 0, len(req.Shops))
	for _, raw := range req.Shops {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid shop id: %w", err)
		}
		shops = append(shops, id)
	}

	dist := make(Distribution, len(req.Distribution))
	for rawIndex, allocation := range req.Distribution {
		index, err := strconv.Atoi(rawIndex)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid line item index %q: %w", rawIndex, err)
		}
		if index < 0 || index >= len(items) {
			return nil, nil, nil, ErrUnknownLineItem
		}
		byShop := make(map[uuid.UUID]int, len(allocation))
		for rawShop, qty := range allocation {
			shopID, err := uuid.Parse(rawShop)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("invalid shop id: %w", err)
			}
			byShop[shopID] = qty
		}
		dist[index] = byShop
	}
	return items, shops, dist, nil
}

func (s *service) afterCommit(ctx context.Context, dist Distribution) {
	seen := make(map[uuid.UUID]bool)
	keys := []string{cache.TransfersKey}
	for _, allocation := range dist {
		for shopID, qty := range allocation {
			if qty > 0 && !seen[shopID] {
				seen[shopID] = true
				keys = append(keys, cache.ShopKey(shopID))
			}
		}
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		log.Warn().Err(err).Msg("intake: cache invalidation failed")
	}

	actor, _ := auth.ActorFromContext(ctx)
	shopIDs := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		shopIDs = append(shopIDs, id)
	}
	s.audit.Record(audit.Event{
		Type:    audit.IntakeCommitted,
		Actor:   actor,
		ShopIDs: shopIDs,
	})
}
