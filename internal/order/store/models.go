package store

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the status permits no further status changes.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether s is one of the known order statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is the row representation of the orders table.
type Order struct {
	ID              int64
	CustomerID      string
	Status          Status
	TotalAmount     float64
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is the row representation of the order_items table.
// The order exclusively owns its items; deleting the order cascades.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// CreateOrderParams holds the order header fields for insertion.
type CreateOrderParams struct {
	CustomerID      string
	Status          Status
	TotalAmount     float64
	ShippingAddress string
}

// CreateOrderItemParams holds a line item for insertion. OrderID is
// filled in by the store once the header row exists.
type CreateOrderItemParams struct {
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// UpdateOrderParams is a partial update: nil fields are left untouched.
type UpdateOrderParams struct {
	Status          *Status
	ShippingAddress *string
}
