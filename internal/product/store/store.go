// Package store provides an interface for product storage operations.
package store

import (
	"context"
)

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindAll returns available products with pagination.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]Product, error)

	// Create adds a new product to the system.
	// Returns error if the product cannot be created.
	Create(ctx context.Context, params CreateParams) (*Product, error)

	// Update applies the non-nil fields of params to an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int64, params UpdateParams) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error

	// DecrementStock atomically decreases stock by quantity and returns the
	// new stock level. Returns ErrInsufficientStock when stock < quantity
	// and ErrProductNotFound for an unknown product. The check and the
	// decrement are a single conditional update, safe against concurrent
	// reservations of the same product.
	DecrementStock(ctx context.Context, id int64, quantity int64) (int64, error)

	// IncrementStock increases stock by quantity and returns the new stock
	// level. Returns ErrProductNotFound for an unknown product.
	IncrementStock(ctx context.Context, id int64, quantity int64) (int64, error)
}
