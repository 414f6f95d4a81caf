// Package memory holds stores backed by in-process data.
package memory

import (
	"context"
	"fmt"

	"user-api/internal/domain"
	"user-api/internal/repository"
)

var defaultCatalog = []domain.Product{
	{ID: 1, Name: "Wireless Mouse", Category: "Accessories", Price: 24.99, InStock: true},
	{ID: 2, Name: "Mechanical Keyboard", Category: "Accessories", Price: 89.5, InStock: true},
	{ID: 3, Name: "27in Monitor", Category: "Displays", Price: 219, InStock: false},
	{ID: 4, Name: "USB-C Hub", Category: "Accessories", Price: 39.9, InStock: true},
	{ID: 5, Name: "Noise Cancelling Headphones", Category: "Audio", Price: 149.99, InStock: true},
}

// ProductRepository serves a fixed catalog. It is never written after construction.
type ProductRepository struct {
	products []domain.Product
}

// NewProductRepository returns a catalog over products, or the built-in catalog when none are given.
func NewProductRepository(products ...domain.Product) repository.ProductRepository {
	if len(products) == 0 {
		products = defaultCatalog
	}
	return &ProductRepository{products: append([]domain.Product(nil), products...)}
}

func (r *ProductRepository) List(_ context.Context) ([]domain.Product, error) {
	return append([]domain.Product(nil), r.products...), nil
}

func (r *ProductRepository) Get(_ context.Context, id int) (*domain.Product, error) {
	for i := range r.products {
		if r.products[i].ID == id {
			p := r.products[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
}
