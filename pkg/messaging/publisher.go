// Package messaging defines the event publishing boundary for the
// order service.
package messaging

import (
	"context"
)

const (
	OrdersCreatedSubject   = "orders.created"
	OrdersCancelledSubject = "orders.cancelled"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
