// Package service provides the implementation of order-related business
// logic, including the stock reservation workflow run on order creation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ordererrors "github.com/abelikov/storefront/internal/order/errors"
	"github.com/abelikov/storefront/internal/order/store"
	"github.com/abelikov/storefront/pkg/client/catalog"
	"github.com/abelikov/storefront/pkg/messaging"
	"github.com/abelikov/storefront/pkg/messaging/events"
)

// OrderService defines the methods for managing orders.
// It abstracts the underlying business logic and data access.
type OrderService interface {
	// FindByID retrieves a single order by its unique identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id int64) (*OrderDto, error)

	// FindAll returns orders with pagination.
	// Returns an empty slice if no orders exist.
	FindAll(ctx context.Context, offset, limit int32) ([]OrderDto, error)

	// FindByCustomer returns all orders for a specific customer.
	// Returns an empty slice if no orders exist.
	FindByCustomer(ctx context.Context, customerID string, offset, limit int32) ([]OrderDto, error)

	// Create reserves stock for every line item and persists the order.
	// When any reservation fails the whole order is aborted and already
	// reserved stock is released again.
	Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error)

	// Update modifies an existing order's details.
	// Returns ErrInvalidTransition when a status change is attempted on an
	// order in a terminal status.
	Update(ctx context.Context, id int64, order OrderUpdateDto) (*OrderDto, error)

	// Cancel sets the order status to cancelled.
	// Returns ErrInvalidTransition when the order is already delivered or
	// cancelled.
	Cancel(ctx context.Context, id int64) (*OrderDto, error)
}

// Service implements OrderService and provides methods to manage orders.
type Service struct {
	orderStore  store.OrderStore
	stockClient catalog.StockClient
	publisher   messaging.Publisher
	logger      *slog.Logger
}

// NewService creates a new instance of OrderService with the provided dependencies.
func NewService(orderStore store.OrderStore, stockClient catalog.StockClient, publisher messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		orderStore:  orderStore,
		stockClient: stockClient,
		publisher:   publisher,
		logger:      logger.With("component", "service"),
	}
}

// OrderItemDto represents the data transfer object for an order line item.
type OrderItemDto struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderDto represents the data transfer object for an order.
type OrderDto struct {
	ID              int64          `json:"id"`
	CustomerID      string         `json:"customer_id"`
	Status          string         `json:"status"`
	TotalAmount     float64        `json:"total_amount"`
	ShippingAddress string         `json:"shipping_address"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	Items           []OrderItemDto `json:"items,omitempty"`
}

// OrderItemCreateDto represents the data transfer object for creating a new order item.
// UnitPrice is optional and defaults to 0 when not supplied by the caller.
type OrderItemCreateDto struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Quantity  int64    `json:"quantity"   validate:"required,gt=0"`
	UnitPrice *float64 `json:"unit_price" validate:"omitempty,gte=0"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
type OrderCreateDto struct {
	CustomerID      string               `json:"customer_id"      validate:"required"`
	ShippingAddress string               `json:"shipping_address" validate:"required"`
	Items           []OrderItemCreateDto `json:"items"            validate:"required,gt=0,dive"`
}

// OrderUpdateDto represents a partial update. Nil fields were not
// supplied by the caller and are left untouched.
type OrderUpdateDto struct {
	Status          *string `json:"status"           validate:"omitempty,oneof=pending processing shipped delivered cancelled"`
	ShippingAddress *string `json:"shipping_address" validate:"omitempty"`
}

// FindByID retrieves an order by its ID and returns it as an OrderDto.
// Returns ErrOrderNotFound if no order exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id int64) (*OrderDto, error) {
	order, items, err := s.orderStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(order, items), nil
}

// FindAll retrieves a list of all orders and returns them as OrderDtos.
func (s *Service) FindAll(ctx context.Context, offset, limit int32) ([]OrderDto, error) {
	orders, err := s.orderStore.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return toDtos(orders), nil
}

// FindByCustomer retrieves a customer's orders and returns them as OrderDtos.
func (s *Service) FindByCustomer(ctx context.Context, customerID string, offset, limit int32) ([]OrderDto, error) {
	orders, err := s.orderStore.FindByCustomer(ctx, customerID, offset, limit)
	if err != nil {
		return nil, err
	}
	return toDtos(orders), nil
}

// Create runs the stock reservation workflow and persists the order.
//
// Reservations are issued per line item, in the order submitted. When a
// reservation fails, reservations already made for earlier items are
// compensated with release calls before the error is returned, so a
// rejected order leaves no stock behind. The order row is only written
// once every reservation has succeeded.
func (s *Service) Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error) {
	for i, item := range order.Items {
		_, err := s.stockClient.Reserve(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		s.logger.WarnContext(ctx, "Stock reservation failed, aborting order",
			"product_id", item.ProductID, "quantity", item.Quantity, "error", err)
		s.compensate(ctx, order.Items[:i])
		return nil, fmt.Errorf("failed to reserve product %d: %w", item.ProductID, err)
	}

	var totalAmount float64
	orderItems := make([]store.CreateOrderItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		unitPrice := 0.0
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		orderItems = append(orderItems, store.CreateOrderItemParams{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
		})
		totalAmount += float64(item.Quantity) * unitPrice
	}

	createdOrder, items, err := s.orderStore.CreateOrder(ctx, store.CreateOrderParams{
		CustomerID:      order.CustomerID,
		Status:          store.StatusPending,
		TotalAmount:     totalAmount,
		ShippingAddress: order.ShippingAddress,
	}, orderItems)
	if err != nil {
		// The order row never existed; give the reserved stock back.
		s.compensate(ctx, order.Items)
		return nil, err
	}

	event := events.OrderCreatedEvent{
		OrderID:     createdOrder.ID,
		CustomerID:  createdOrder.CustomerID,
		TotalAmount: createdOrder.TotalAmount,
		CreatedAt:   createdOrder.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderCreatedEvent", "order_id", createdOrder.ID, "error", err)
	}

	return toDto(createdOrder, items), nil
}

// compensate releases reservations made for the given items. Failures are
// logged and not surfaced: the reservation error that triggered the
// compensation is the one the caller needs to see.
func (s *Service) compensate(ctx context.Context, reserved []OrderItemCreateDto) {
	for _, item := range reserved {
		if _, err := s.stockClient.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.ErrorContext(ctx, "Failed to release reserved stock, reservation leaked",
				"product_id", item.ProductID, "quantity", item.Quantity, "error", err)
		}
	}
}

// Update modifies an existing order's details and returns the updated order.
// A status change on an order in a terminal status is rejected; non-status
// fields remain updatable regardless of status.
func (s *Service) Update(ctx context.Context, id int64, updateDto OrderUpdateDto) (*OrderDto, error) {
	order, _, err := s.orderStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() && updateDto.Status != nil && *updateDto.Status != string(order.Status) {
		return nil, fmt.Errorf("cannot update order in %s status: %w", order.Status, ordererrors.ErrInvalidTransition)
	}

	var status *store.Status
	if updateDto.Status != nil {
		st := store.Status(*updateDto.Status)
		status = &st
	}
	updated, err := s.orderStore.Update(ctx, id, store.UpdateOrderParams{
		Status:          status,
		ShippingAddress: updateDto.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}

	return toDto(updated, nil), nil
}

// Cancel sets the order status to cancelled unless the order is already
// in a terminal status. Reserved stock is not restored on cancellation.
func (s *Service) Cancel(ctx context.Context, id int64) (*OrderDto, error) {
	order, _, err := s.orderStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("cannot cancel order in %s status: %w", order.Status, ordererrors.ErrInvalidTransition)
	}

	cancelled, err := s.orderStore.UpdateStatus(ctx, id, store.StatusCancelled)
	if err != nil {
		return nil, err
	}

	event := events.OrderCancelledEvent{
		OrderID:     cancelled.ID,
		CustomerID:  cancelled.CustomerID,
		CancelledAt: cancelled.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderCancelledEvent", "order_id", cancelled.ID, "error", err)
	}

	return toDto(cancelled, nil), nil
}

// toDto converts a store.Order to an OrderDto.
func toDto(order *store.Order, items []store.OrderItem) *OrderDto {
	if order == nil {
		return nil
	}

	var itemsDto []OrderItemDto
	if items != nil {
		itemsDto = make([]OrderItemDto, 0, len(items))
		for _, item := range items {
			itemsDto = append(itemsDto, OrderItemDto{
				ID:        item.ID,
				OrderID:   item.OrderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
	}

	return &OrderDto{
		ID:              order.ID,
		CustomerID:      order.CustomerID,
		Status:          string(order.Status),
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       order.UpdatedAt.Format(time.RFC3339),
		Items:           itemsDto,
	}
}

// toDtos converts a slice of store.Order to a slice of OrderDto without items.
func toDtos(orders []store.Order) []OrderDto {
	dtos := make([]OrderDto, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, *toDto(&orders[i], nil))
	}
	return dtos
}
