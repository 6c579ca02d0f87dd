package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a product id does not resolve to a product.
var ErrNotFound = errors.New("product not found")

// Directory is the narrow read-only view other modules take on products.
type Directory interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.SKU == "" {
		return nil, fmt.Errorf("sku is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	p := &Product{
		ID:   uuid.New(),
		SKU:  req.SKU,
		Name: req.Name,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetProductByID(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
