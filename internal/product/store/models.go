package store

import "time"

// Product is the row representation of the products table.
type Product struct {
	ID          int64
	Name        string
	Description *string
	Price       float64
	Stock       int64
	Category    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateParams holds the fields required to insert a product.
type CreateParams struct {
	Name        string
	Description *string
	Price       float64
	Stock       int64
	Category    string
}

// UpdateParams is a partial update: nil fields are left untouched.
type UpdateParams struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int64
	Category    *string
	IsActive    *bool
}
