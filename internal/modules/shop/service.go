package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a shop id does not resolve to a shop.
var ErrNotFound = errors.New("shop not found")

// Directory is the narrow read-only view other modules take on shops.
type Directory interface {
	// ShopActive reports whether the shop exists and is active.
	// Returns ErrNotFound when the shop does not exist.
	ShopActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service defines shop management business logic.
type Service interface {
	CreateShop(ctx context.Context, req CreateShopRequest) (*Shop, error)
	GetShop(ctx context.Context, id string) (*Shop, error)
	ListShops(ctx context.Context) ([]*Shop, error)
	SetActive(ctx context.Context, id string, active bool) error
	ShopActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService creates a new shop service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateShop(ctx context.Context, req CreateShopRequest) (*Shop, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("shop name is required")
	}
	sh := &Shop{
		ID:       uuid.New(),
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		IsActive: true,
	}
	if err := s.repo.CreateShop(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) GetShop(ctx context.Context, id string) (*Shop, error) {
	sh, err := s.repo.GetShopByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sh, err
}

func (s *service) ListShops(ctx context.Context) ([]*Shop, error) {
	return s.repo.ListShops(ctx)
}

func (s *service) SetActive(ctx context.Context, id string, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *service) ShopActive(ctx context.Context, id uuid.UUID) (bool, error) {
	sh, err := s.repo.GetShopByID(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return sh.IsActive, nil
}
