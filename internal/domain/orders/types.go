package orders

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/inventory"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidStatus     = errors.New("invalid order status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipping  Status = "shipping"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipping, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the statuses reachable from each status. delivered and
// cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipping, StatusCancelled},
	StatusShipping:  {StatusDelivered, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID              int64       `json:"id"`
	OrderNumber     string      `json:"order_number"`
	UserID          int64       `json:"user_id"`
	Status          Status      `json:"status" swaggertype:"string" enums:"pending,confirmed,shipping,delivered,cancelled"`
	TotalCents      int64       `json:"total_cents"`
	ShippingAddress string      `json:"shipping_address"`
	Note            *string     `json:"note,omitempty"`
	CancelledReason *string     `json:"cancelled_reason,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Items           []OrderItem `json:"items,omitempty"`
}

// OrderItem snapshots name and price at the time the stock was reserved.
type OrderItem struct {
	ID              int64  `json:"id"`
	OrderID         int64  `json:"order_id"`
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

// Lines is the stock adjustment this order stands for.
func (o *Order) Lines() []inventory.LineItem {
	lines := make([]inventory.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

type UpdateStatusOpts struct {
	CancelledReason *string
}

type Store interface {
	// Create inserts o and its items, filling ids, order number and timestamps.
	Create(ctx context.Context, o *Order) (*Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	// GetForUpdate is GetByID plus a row lock held until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error)
	ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status Status, opts UpdateStatusOpts) error
	Delete(ctx context.Context, id int64) error
}
