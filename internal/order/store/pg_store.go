package store

import (
	"context"
	"errors"
	"fmt"

	ordererrors "github.com/abelikov/storefront/internal/order/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of OrderStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const orderColumns = `id, customer_id, status, total_amount, shipping_address, created_at, updated_at`
const orderItemColumns = `id, order_id, product_id, quantity, unit_price`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	orders := make([]Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// FindByID retrieves the order header and its items in one transaction.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Order, []OrderItem, error) {
	var order *Order
	var orderItems []OrderItem

	// Use transaction to ensure atomicity and consistency
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ordererrors.ErrOrderNotFound
			}
			return ordererrors.ErrFailedToFindOrder
		}
		rows, err := tx.Query(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, id)
		if err != nil {
			return ordererrors.ErrFailedToFindOrderItems
		}
		defer rows.Close()
		items := make([]OrderItem, 0)
		for rows.Next() {
			var item OrderItem
			if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
				return ordererrors.ErrFailedToFindOrderItems
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return ordererrors.ErrFailedToFindOrderItems
		}
		order = o
		orderItems = items
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return order, orderItems, nil
}

// FindAll returns orders with pagination. A single query, no transaction needed.
func (p *PgStore) FindAll(ctx context.Context, offset, limit int32) ([]Order, error) {
	rows, err := p.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	return scanOrders(rows)
}

// FindByCustomer returns a customer's orders with pagination.
func (p *PgStore) FindByCustomer(ctx context.Context, customerID string, offset, limit int32) ([]Order, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY id OFFSET $2 LIMIT $3`,
		customerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer orders: %w", err)
	}
	return scanOrders(rows)
}

// CreateOrder persists the order header and all line items in one transaction.
func (p *PgStore) CreateOrder(ctx context.Context, orderParams CreateOrderParams, items []CreateOrderItemParams) (*Order, []OrderItem, error) {
	var createdOrder *Order
	var createdItems []OrderItem

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		order, err := scanOrder(tx.QueryRow(ctx,
			`INSERT INTO orders (customer_id, status, total_amount, shipping_address)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+orderColumns,
			orderParams.CustomerID, orderParams.Status, orderParams.TotalAmount, orderParams.ShippingAddress))
		if err != nil {
			return ordererrors.ErrCreateOrder
		}
		orderItems := make([]OrderItem, 0, len(items))
		for _, item := range items {
			item.OrderID = order.ID
			var orderItem OrderItem
			err := tx.QueryRow(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				 VALUES ($1, $2, $3, $4)
				 RETURNING `+orderItemColumns,
				item.OrderID, item.ProductID, item.Quantity, item.UnitPrice).
				Scan(&orderItem.ID, &orderItem.OrderID, &orderItem.ProductID, &orderItem.Quantity, &orderItem.UnitPrice)
			if err != nil {
				return ordererrors.ErrCreateOrderItem
			}
			orderItems = append(orderItems, orderItem)
		}
		createdOrder = order
		createdItems = orderItems
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return createdOrder, createdItems, nil
}

// Update applies only the non-nil fields of params to an existing order.
func (p *PgStore) Update(ctx context.Context, id int64, params UpdateOrderParams) (*Order, error) {
	order, err := scanOrder(p.db.QueryRow(ctx,
		`UPDATE orders SET
			status           = COALESCE($2, status),
			shipping_address = COALESCE($3, shipping_address),
			updated_at       = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		id, params.Status, params.ShippingAddress))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", ordererrors.ErrUpdateOrder, err)
	}
	return order, nil
}

// UpdateStatus sets the status of an existing order.
func (p *PgStore) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	order, err := scanOrder(p.db.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+orderColumns,
		id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", ordererrors.ErrUpdateOrder, err)
	}
	return order, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return ordererrors.ErrTransactionBegin
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return ordererrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ordererrors.ErrTransactionCommit
	}

	return nil
}
