package stock

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lusakastack/shopstock-backend/internal/cache"
)

type mockLedger struct {
	mu    sync.Mutex
	items []*InventoryItem
	calls int
}

func (m *mockLedger) GetItem(ctx context.Context, productID, shopID uuid.UUID) (*InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ProductID == productID && item.ShopID == shopID {
			return item, nil
		}
	}
	return nil, ErrItemNotFound
}

func (m *mockLedger) ListByShop(ctx context.Context, shopID uuid.UUID) ([]*InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []*InventoryItem
	for _, item := range m.items {
		if item.ShopID == shopID {
			out = append(out, item)
		}
	}
	return out, nil
}

// mapCache is an in-memory stand-in for the Redis store, round-tripping
// values through JSON like the real one.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string][]byte)} }

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = b
	return nil
}

func (m *mapCache) Invalidate(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func TestAvailable(t *testing.T) {
	item := &InventoryItem{Quantity: 50, ReservedQuantity: 10}
	if got := item.Available(); got != 40 {
		t.Errorf("expected available=40, got %d", got)
	}
}

func TestShopLevels_ReadThrough(t *testing.T) {
	shopID := uuid.New()
	ledger := &mockLedger{items: []*InventoryItem{
		{ProductID: uuid.New(), ShopID: shopID, Quantity: 7, ReservedQuantity: 2, Cost: 1.25},
	}}
	store := newMapCache()
	svc := NewService(ledger, store)

	// miss populates the cache
	items, err := svc.ShopLevels(context.Background(), shopID.String())
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 7 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if ledger.calls != 1 {
		t.Fatalf("expected one ledger call, got %d", ledger.calls)
	}

	// hit skips the ledger
	if _, err := svc.ShopLevels(context.Background(), shopID.String()); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if ledger.calls != 1 {
		t.Errorf("expected cached read, ledger called %d times", ledger.calls)
	}

	// invalidation forces a reload
	if err := store.Invalidate(context.Background(), cache.ShopKey(shopID)); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, err := svc.ShopLevels(context.Background(), shopID.String()); err != nil {
		t.Fatalf("third read failed: %v", err)
	}
	if ledger.calls != 2 {
		t.Errorf("expected reload after invalidation, ledger called %d times", ledger.calls)
	}
}

func TestShopLevels_InvalidID(t *testing.T) {
	svc := NewService(&mockLedger{}, cache.NewNoop())
	if _, err := svc.ShopLevels(context.Background(), "not-a-uuid"); err == nil {
		t.Error("expected error for malformed shop id")
	}
}
