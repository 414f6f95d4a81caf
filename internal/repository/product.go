package repository

import (
	"context"

	"user-api/internal/domain"
)

// ProductRepository exposes read-only access to the product catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int) (*domain.Product, error)
}
