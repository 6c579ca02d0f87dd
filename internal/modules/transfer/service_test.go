package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lusakastack/shopstock-backend/internal/cache"
	"github.com/lusakastack/shopstock-backend/internal/modules/audit"
	"github.com/lusakastack/shopstock-backend/internal/modules/shop"
	"github.com/lusakastack/shopstock-backend/internal/modules/stock"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type ledgerKey struct {
	productID uuid.UUID
	shopID    uuid.UUID
}

// mockLedger backs both the read-side stock.Ledger and the mock repository's
// ledger effects. Mutations take the mutex for their whole check-and-write,
// mirroring the conditional UPDATE guards of the real store.
type mockLedger struct {
	mu    sync.Mutex
	items map[ledgerKey]*stock.InventoryItem
}

func newMockLedger() *mockLedger {
	return &mockLedger{items: make(map[ledgerKey]*stock.InventoryItem)}
}

func (m *mockLedger) seed(productID, shopID uuid.UUID, qty, reserved int, cost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[ledgerKey{productID, shopID}] = &stock.InventoryItem{
		ProductID: productID, ShopID: shopID,
		Quantity: qty, ReservedQuantity: reserved, Cost: cost,
	}
}

func (m *mockLedger) GetItem(ctx context.Context, productID, shopID uuid.UUID) (*stock.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[ledgerKey{productID, shopID}]
	if !ok {
		return nil, stock.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *mockLedger) ListByShop(ctx context.Context, shopID uuid.UUID) ([]*stock.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*stock.InventoryItem
	for key, item := range m.items {
		if key.shopID == shopID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

// reserveAll checks and reserves every item under one lock, like one
// serializable transaction. Nothing is applied unless everything fits.
func (m *mockLedger) reserveAll(shopID uuid.UUID, items []*Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		inv, ok := m.items[ledgerKey{item.ProductID, shopID}]
		available := 0
		if ok {
			available = inv.Available()
		}
		if available < item.Quantity {
			return &stock.InsufficientInventoryError{
				ProductID: item.ProductID, Required: item.Quantity, Available: available,
			}
		}
	}
	for _, item := range items {
		m.items[ledgerKey{item.ProductID, shopID}].ReservedQuantity += item.Quantity
	}
	return nil
}

func (m *mockLedger) releaseAll(shopID uuid.UUID, items []*Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.items[ledgerKey{item.ProductID, shopID}].ReservedQuantity -= item.Quantity
	}
}

func (m *mockLedger) moveAll(sourceID, destID uuid.UUID, items []*Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		src := m.items[ledgerKey{item.ProductID, sourceID}]
		src.Quantity -= item.Quantity
		src.ReservedQuantity -= item.Quantity
		dst, ok := m.items[ledgerKey{item.ProductID, destID}]
		if !ok {
			m.items[ledgerKey{item.ProductID, destID}] = &stock.InventoryItem{
				ProductID: item.ProductID, ShopID: destID,
				Quantity: item.Quantity, Cost: item.UnitCost,
			}
			continue
		}
		dst.Quantity += item.Quantity
	}
}

type mockRepo struct {
	mu        sync.Mutex
	ledger    *mockLedger
	transfers map[uuid.UUID]*Transfer
}

func newMockRepo(ledger *mockLedger) *mockRepo {
	return &mockRepo{ledger: ledger, transfers: make(map[uuid.UUID]*Transfer)}
}

func (m *mockRepo) Create(ctx context.Context, t *Transfer) error {
	if err := m.ledger.reserveAll(t.SourceShopID, t.Items); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = t
	return nil
}

func (m *mockRepo) Complete(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != StatusPending {
		return nil, ErrInvalidStateTransition
	}
	m.ledger.moveAll(t.SourceShopID, t.DestinationShopID, t.Items)
	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return t, nil
}

func (m *mockRepo) Cancel(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != StatusPending {
		return nil, ErrInvalidStateTransition
	}
	m.ledger.releaseAll(t.SourceShopID, t.Items)
	t.Status = StatusCancelled
	return t, nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != StatusPending {
		return nil, ErrInvalidStateTransition
	}
	m.ledger.releaseAll(t.SourceShopID, t.Items)
	delete(m.transfers, id)
	return t, nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *mockRepo) List(ctx context.Context, status Status) ([]*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transfer
	for _, t := range m.transfers {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockShopDir struct {
	active map[uuid.UUID]bool
}

func (m *mockShopDir) ShopActive(ctx context.Context, id uuid.UUID) (bool, error) {
	active, ok := m.active[id]
	if !ok {
		return false, shop.ErrNotFound
	}
	return active, nil
}

type mockProductDir struct {
	known map[uuid.UUID]bool
}

func (m *mockProductDir) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

type mockCache struct {
	mu             sync.Mutex
	invalidated    []string
	failEverything bool
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if m.failEverything {
		return false, errors.New("cache down")
	}
	return false, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.failEverything {
		return errors.New("cache down")
	}
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, keys ...string) error {
	if m.failEverything {
		return errors.New("cache down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, keys...)
	return nil
}

type mockRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *mockRecorder) Record(e audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// ── fixtures ─────────────────────────────────────────────────────────────────

type fixture struct {
	svc      Service
	ledger   *mockLedger
	repo     *mockRepo
	cache    *mockCache
	recorder *mockRecorder
	source   uuid.UUID
	dest     uuid.UUID
	product  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		ledger:   newMockLedger(),
		cache:    &mockCache{},
		recorder: &mockRecorder{},
		source:   uuid.New(),
		dest:     uuid.New(),
		product:  uuid.New(),
	}
	f.repo = newMockRepo(f.ledger)
	shops := &mockShopDir{active: map[uuid.UUID]bool{f.source: true, f.dest: true}}
	products := &mockProductDir{known: map[uuid.UUID]bool{f.product: true}}
	f.svc = NewService(f.repo, f.ledger, shops, products, f.cache, f.recorder)
	return f
}

func (f *fixture) createRequest(qty int) CreateTransferRequest {
	return CreateTransferRequest{
		SourceShopID:      f.source.String(),
		DestinationShopID: f.dest.String(),
		Items:             []RequestItem{{ProductID: f.product.String(), Quantity: qty}},
	}
}

func (f *fixture) item(t *testing.T, productID, shopID uuid.UUID) *stock.InventoryItem {
	t.Helper()
	item, err := f.ledger.GetItem(context.Background(), productID, shopID)
	if err != nil {
		t.Fatalf("ledger item missing for product %s at shop %s: %v", productID, shopID, err)
	}
	return item
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestCreateTransfer_ReservesStock(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 2.5)

	tr, err := f.svc.Create(context.Background(), f.createRequest(10))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if tr.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", tr.Status)
	}
	if len(tr.Items) != 1 || tr.Items[0].UnitCost != 2.5 {
		t.Errorf("expected unit cost snapshot 2.5, got %+v", tr.Items)
	}

	src := f.item(t, f.product, f.source)
	if src.Quantity != 50 || src.ReservedQuantity != 10 {
		t.Errorf("expected quantity=50 reserved=10, got quantity=%d reserved=%d",
			src.Quantity, src.ReservedQuantity)
	}
}

func TestCompleteTransfer_MovesStock(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 2.5)

	tr, err := f.svc.Create(context.Background(), f.createRequest(10))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	done, err := f.svc.Complete(context.Background(), tr.ID.String())
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Errorf("expected COMPLETED with timestamp, got %s %v", done.Status, done.CompletedAt)
	}

	src := f.item(t, f.product, f.source)
	if src.Quantity != 40 || src.ReservedQuantity != 0 {
		t.Errorf("source: expected quantity=40 reserved=0, got %d/%d", src.Quantity, src.ReservedQuantity)
	}
	dst := f.item(t, f.product, f.dest)
	if dst.Quantity != 10 || dst.Cost != 2.5 {
		t.Errorf("destination: expected quantity=10 cost=2.5, got quantity=%d cost=%v", dst.Quantity, dst.Cost)
	}
}

func TestCreateTransfer_InsufficientInventory(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 40, 0, 1)

	_, err := f.svc.Create(context.Background(), f.createRequest(45))
	var insufficient *stock.InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	if insufficient.Required != 45 || insufficient.Available != 40 {
		t.Errorf("expected required=45 available=40, got %+v", insufficient)
	}

	src := f.item(t, f.product, f.source)
	if src.ReservedQuantity != 0 {
		t.Errorf("rejected transfer must not reserve, got reserved=%d", src.ReservedQuantity)
	}
}

func TestCreateTransfer_ValidationRejections(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)
	unknownShop := uuid.New()

	inactive := uuid.New()
	shops := &mockShopDir{active: map[uuid.UUID]bool{f.source: true, f.dest: true, inactive: false}}
	products := &mockProductDir{known: map[uuid.UUID]bool{f.product: true}}
	f.svc = NewService(f.repo, f.ledger, shops, products, f.cache, f.recorder)

	cases := []struct {
		name string
		req  CreateTransferRequest
		want error
	}{
		{"same shop", CreateTransferRequest{
			SourceShopID: f.source.String(), DestinationShopID: f.source.String(),
			Items: []RequestItem{{ProductID: f.product.String(), Quantity: 1}},
		}, ErrInvalidShopPair},
		{"no items", CreateTransferRequest{
			SourceShopID: f.source.String(), DestinationShopID: f.dest.String(),
		}, ErrEmptyItems},
		{"zero quantity", CreateTransferRequest{
			SourceShopID: f.source.String(), DestinationShopID: f.dest.String(),
			Items: []RequestItem{{ProductID: f.product.String(), Quantity: 0}},
		}, ErrNonPositiveQuantity},
		{"negative quantity", CreateTransferRequest{
			SourceShopID: f.source.String(), DestinationShopID: f.dest.String(),
			Items: []RequestItem{{ProductID: f.product.String(), Quantity: -3}},
		}, ErrNonPositiveQuantity},
		{"duplicate product", CreateTransferRequest{
			SourceShopID: f.source.String(), DestinationShopID: f.dest.String(),
			Items: []RequestItem{
				{ProductID: f.product.String(), Quantity: 1},
				{ProductID: f.product.String(), Quantity: 2},
			},
		}, ErrDuplicateProduct},
		{"unknown shop", CreateTransferRequest{
			SourceShopID: unknownShop.String(), DestinationShopID: f.dest.String(),
			Items: []RequestItem{{ProductID: f.product.String(), Quantity: 1}},
		}, ErrShopNotFound},
		{"inactive shop", CreateTransferRequest{
			SourceShopID: inactive.String(), DestinationShopID: f.dest.String(),
			Items: []RequestItem{{ProductID: f.product.String(), Quantity: 1}},
		}, ErrShopInactive},
		{"unknown product", CreateTransferRequest{
			SourceShopID: f.source.String(), DestinationShopID: f.dest.String(),
			Items: []RequestItem{{ProductID: uuid.New().String(), Quantity: 1}},
		}, ErrProductNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCompleteTransfer_Terminal(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)

	tr, err := f.svc.Create(context.Background(), f.createRequest(10))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), tr.ID.String()); err != nil {
		t.Fatalf("first complete failed: %v", err)
	}

	if _, err := f.svc.Complete(context.Background(), tr.ID.String()); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("second complete: expected ErrInvalidStateTransition, got %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), tr.ID.String()); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("cancel after complete: expected ErrInvalidStateTransition, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), tr.ID.String()); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("delete after complete: expected ErrInvalidStateTransition, got %v", err)
	}

	src := f.item(t, f.product, f.source)
	if src.Quantity != 40 || src.ReservedQuantity != 0 {
		t.Errorf("ledger changed by rejected operations: quantity=%d reserved=%d",
			src.Quantity, src.ReservedQuantity)
	}
}

func TestCancelTransfer_RestoresAvailability(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)

	tr, err := f.svc.Create(context.Background(), f.createRequest(10))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if got := f.item(t, f.product, f.source).Available(); got != 40 {
		t.Fatalf("expected available=40 after create, got %d", got)
	}

	cancelled, err := f.svc.Cancel(context.Background(), tr.ID.String())
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	src := f.item(t, f.product, f.source)
	if src.Quantity != 50 || src.ReservedQuantity != 0 {
		t.Errorf("expected quantity=50 reserved=0, got %d/%d", src.Quantity, src.ReservedQuantity)
	}
}

func TestDeleteTransfer_ReleasesReservation(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)

	tr, err := f.svc.Create(context.Background(), f.createRequest(10))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := f.svc.Delete(context.Background(), tr.ID.String()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), tr.ID.String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	src := f.item(t, f.product, f.source)
	if src.ReservedQuantity != 0 {
		t.Errorf("expected reservation released, got reserved=%d", src.ReservedQuantity)
	}
}

func TestConcurrentCreate_OnlyOneWins(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.createRequest(30))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var e *stock.InsufficientInventoryError
		if errors.As(err, &e) {
			insufficient++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Errorf("expected exactly one winner and one InsufficientInventory, got %d/%d",
			successes, insufficient)
	}

	src := f.item(t, f.product, f.source)
	if src.ReservedQuantity != 30 {
		t.Errorf("expected reserved=30, got %d", src.ReservedQuantity)
	}
}

func TestCreateTransfer_InvalidatesCacheAndRecordsAudit(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)

	tr, err := f.svc.Create(context.Background(), f.createRequest(5))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	want := map[string]bool{
		cache.ShopKey(f.source): true,
		cache.ShopKey(f.dest):   true,
		cache.TransfersKey:      true,
	}
	f.cache.mu.Lock()
	for _, key := range f.cache.invalidated {
		delete(want, key)
	}
	f.cache.mu.Unlock()
	if len(want) != 0 {
		t.Errorf("missing invalidation keys: %v", want)
	}

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	if len(f.recorder.events) != 1 || f.recorder.events[0].Type != audit.TransferCreated {
		t.Errorf("expected one TransferCreated event, got %+v", f.recorder.events)
	}
	if f.recorder.events[0].TransferID != tr.ID {
		t.Errorf("audit event carries wrong transfer id")
	}
}

func TestCreateTransfer_CacheOutageDoesNotFailMutation(t *testing.T) {
	f := newFixture()
	f.ledger.seed(f.product, f.source, 50, 0, 1)
	f.cache.failEverything = true

	if _, err := f.svc.Create(context.Background(), f.createRequest(5)); err != nil {
		t.Fatalf("create must succeed despite cache outage, got %v", err)
	}
	src := f.item(t, f.product, f.source)
	if src.ReservedQuantity != 5 {
		t.Errorf("expected reserved=5, got %d", src.ReservedQuantity)
	}
}
