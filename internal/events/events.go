package events

import (
	"context"
	"time"

	"storefront/internal/domain/inventory"

	"github.com/google/uuid"
)

type Type string

const (
	OrderPlaced    Type = "order.placed"
	OrderCancelled Type = "order.cancelled"
	OrderDeleted   Type = "order.deleted"
)

// Event records a committed stock movement caused by an order.
type Event struct {
	ID          string               `json:"id"`
	Type        Type                 `json:"type"`
	OccurredAt  time.Time            `json:"occurred_at"`
	OrderID     int64                `json:"order_id"`
	OrderNumber string               `json:"order_number"`
	Lines       []inventory.LineItem `json:"lines"`
}

func New(t Type, orderID int64, orderNumber string, lines []inventory.LineItem) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		OccurredAt:  time.Now().UTC(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Lines:       lines,
	}
}

type Publisher interface {
	Publish(ctx context.Context, key string, e Event) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, Event) error { return nil }
func (Nop) Close() error                                 { return nil }
