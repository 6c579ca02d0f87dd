package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lusakastack/shopstock-backend/internal/cache"
	"github.com/lusakastack/shopstock-backend/internal/modules/audit"
	"github.com/lusakastack/shopstock-backend/internal/modules/auth"
	"github.com/lusakastack/shopstock-backend/internal/modules/catalog"
	"github.com/lusakastack/shopstock-backend/internal/modules/shop"
	"github.com/lusakastack/shopstock-backend/internal/modules/stock"
)

const listTTL = 30 * time.Second

// Service drives the transfer lifecycle: validate, reserve, then
// complete or cancel.
type Service interface {
	// Create validates the request against the ledger and, on success,
	// persists a PENDING transfer with its reservation in one atomic step.
	Create(ctx context.Context, req CreateTransferRequest) (*Transfer, error)

	// Complete applies a PENDING transfer to the ledger and marks it COMPLETED.
	Complete(ctx context.Context, id string) (*Transfer, error)

	// Cancel releases a PENDING transfer's reservation and marks it CANCELLED.
	Cancel(ctx context.Context, id string) (*Transfer, error)

	// Delete removes a PENDING transfer entirely, releasing its reservation.
	Delete(ctx context.Context, id string) error

	// Get retrieves a transfer with its items.
	Get(ctx context.Context, id string) (*Transfer, error)

	// List returns transfers, optionally filtered by status.
	List(ctx context.Context, status string) ([]*Transfer, error)
}

type service struct {
	repo     Repository
	ledger   stock.Ledger
	shops    shop.Directory
	products catalog.Directory
	cache    cache.Store
	audit    audit.Recorder
}

// NewService creates a new transfer service.
func NewService(repo Repository, ledger stock.Ledger, shops shop.Directory,
	products catalog.Directory, cacheStore cache.Store, recorder audit.Recorder) Service {
	return &service{
		repo:     repo,
		ledger:   ledger,
		shops:    shops,
		products: products,
		cache:    cacheStore,
		audit:    recorder,
	}
}

func (s *service) Create(ctx context.Context, req CreateTransferRequest) (*Transfer, error) {
	sourceID, err := uuid.Parse(req.SourceShopID)
	if err != nil {
		return nil, fmt.Errorf("invalid source_shop_id: %w", err)
	}
	destID, err := uuid.Parse(req.DestinationShopID)
	if err != nil {
		return nil, fmt.Errorf("invalid destination_shop_id: %w", err)
	}
	if sourceID == destID {
		return nil, ErrInvalidShopPair
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := s.checkShop(ctx, sourceID); err != nil {
		return nil, err
	}
	if err := s.checkShop(ctx, destID); err != nil {
		return nil, err
	}

	// Validation is read-only and fail-fast in item order. The quantities it
	// approves are re-checked by the reservation guard inside the
	// transaction, so a concurrent winner cannot cause overselling here.
	seen := make(map[uuid.UUID]bool, len(req.Items))
	items := make([]*Item, 0, len(req.Items))
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product_id: %w", err)
		}
		if line.Quantity <= 0 {
			return nil, ErrNonPositiveQuantity
		}
		if seen[productID] {
			return nil, ErrDuplicateProduct
		}
		seen[productID] = true

		exists, err := s.products.ProductExists(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("look up product: %w", err)
		}
		if !exists {
			return nil, ErrProductNotFound
		}

		available, cost := 0, 0.0
		inv, err := s.ledger.GetItem(ctx, productID, sourceID)
		if err == nil {
			available, cost = inv.Available(), inv.Cost
		} else if !errors.Is(err, stock.ErrItemNotFound) {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if available < line.Quantity {
			return nil, &stock.InsufficientInventoryError{
				ProductID: productID,
				Required:  line.Quantity,
				Available: available,
			}
		}
		items = append(items, &Item{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  line.Quantity,
			UnitCost:  cost,
		})
	}

	actor, _ := auth.ActorFromContext(ctx)
	t := &Transfer{
		ID:                uuid.New(),
		SourceShopID:      sourceID,
		DestinationShopID: destID,
		Status:            StatusPending,
		CreatedBy:         actor,
		Items:             items,
		CreatedAt:         time.Now(),
	}
	for _, item := range t.Items {
		item.TransferID = t.ID
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.afterMutation(ctx, audit.TransferCreated, t)
	return t, nil
}

func (s *service) Complete(ctx context.Context, id string) (*Transfer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer id: %w", err)
	}
	t, err := s.repo.Complete(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, audit.TransferCompleted, t)
	return t, nil
}

func (s *service) Cancel(ctx context.Context, id string) (*Transfer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer id: %w", err)
	}
	t, err := s.repo.Cancel(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, audit.TransferCancelled, t)
	return t, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid transfer id: %w", err)
	}
	t, err := s.repo.Delete(ctx, uid)
	if err != nil {
		return err
	}
	s.afterMutation(ctx, audit.TransferDeleted, t)
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Transfer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer id: %w", err)
	}
	return s.repo.GetByID(ctx, uid)
}

func (s *service) List(ctx context.Context, status string) ([]*Transfer, error) {
	// Only the unfiltered listing is cached; filtered views hit the ledger.
	if status == "" {
		var cached []*Transfer
		hit, err := s.cache.Get(ctx, cache.TransfersKey, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("transfer: cache read failed")
		} else if hit {
			return cached, nil
		}
	}
	transfers, err := s.repo.List(ctx, Status(status))
	if err != nil {
		return nil, err
	}
	if status == "" {
		if err := s.cache.Set(ctx, cache.TransfersKey, transfers, listTTL); err != nil {
			log.Warn().Err(err).Msg("transfer: cache write failed")
		}
	}
	return transfers, nil
}

func (s *service) checkShop(ctx context.Context, id uuid.UUID) error {
	active, err := s.shops.ShopActive(ctx, id)
	if errors.Is(err, shop.ErrNotFound) {
		return ErrShopNotFound
	}
	if err != nil {
		return fmt.Errorf("look up shop: %w", err)
	}
	if !active {
		return ErrShopInactive
	}
	return nil
}

// afterMutation runs the best-effort side effects of a committed mutation.
// Neither the cache nor the audit recorder can fail the operation.
func (s *service) afterMutation(ctx context.Context, typ audit.EventType, t *Transfer) {
	keys := []string{
		cache.ShopKey(t.SourceShopID),
		cache.ShopKey(t.DestinationShopID),
		cache.TransfersKey,
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		log.Warn().Err(err).Str("transfer_id", t.ID.String()).Msg("transfer: cache invalidation failed")
	}

	actor, _ := auth.ActorFromContext(ctx)
	s.audit.Record(audit.Event{
		Type:       typ,
		Actor:      actor,
		TransferID: t.ID,
		ShopIDs:    []uuid.UUID{t.SourceShopID, t.DestinationShopID},
	})
}
