// Package store provides an interface for order storage operations.
package store

import (
	"context"
)

// OrderStore is an interface for order storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type OrderStore interface {
	// FindByID retrieves a single order with its line items.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Order, []OrderItem, error)

	// FindAll returns orders with pagination.
	// Returns an empty slice if no orders exist.
	FindAll(ctx context.Context, offset, limit int32) ([]Order, error)

	// FindByCustomer returns all orders for a specific customer.
	// Returns an empty slice if no orders exist.
	FindByCustomer(ctx context.Context, customerID string, offset, limit int32) ([]Order, error)

	// CreateOrder persists the order header and its items as one unit.
	// Returns an error if the order cannot be created.
	CreateOrder(ctx context.Context, orderParams CreateOrderParams, items []CreateOrderItemParams) (*Order, []OrderItem, error)

	// Update applies the non-nil fields of params to an existing order.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	Update(ctx context.Context, id int64, params UpdateOrderParams) (*Order, error)

	// UpdateStatus sets the status of an existing order.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
}
