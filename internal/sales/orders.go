package sales

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain/inventory"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/storage"
	"storefront/internal/events"

	"go.uber.org/zap"
)

const afterCommitTimeout = 5 * time.Second

type PlaceOrderInput struct {
	Items           []inventory.LineItem `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingAddress string               `json:"shipping_address" validate:"required,max=500"`
	Note            *string              `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// OrderService places and moves orders. Every transaction it runs goes
// through the stock ledger, so order writes share its retry policy and
// counters.
type OrderService struct {
	ledger    *StockLedger
	orders    orders.Store
	cache     *cache.ProductCache
	publisher events.Publisher
	logger    *zap.SugaredLogger
}

func NewOrderService(ledger *StockLedger, store orders.Store, pc *cache.ProductCache, pub events.Publisher, logger *zap.SugaredLogger) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	if pc == nil {
		pc = cache.NewProductCache(nil, 0, logger)
	}
	return &OrderService{
		ledger:    ledger,
		orders:    store,
		cache:     pc,
		publisher: pub,
		logger:    logger,
	}
}

// PlaceOrder reserves stock for every line and stores the order in the same
// transaction. On a stock failure no order exists and no product changed.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (*orders.Order, error) {
	lines, err := inventory.Normalize(in.Items)
	if err != nil {
		return nil, err
	}

	var placed *orders.Order
	err = s.ledger.runTx(ctx, "place order", func(tx *storage.SalesTx) error {
		res, err := tx.Stock.Reserve(ctx, lines)
		if err != nil {
			return err
		}

		o := &orders.Order{
			UserID:          userID,
			Status:          orders.StatusPending,
			ShippingAddress: in.ShippingAddress,
			Note:            in.Note,
			Items:           make([]orders.OrderItem, 0, len(res.Lines)),
		}
		for _, ln := range res.Lines {
			lvl, _ := res.LevelFor(ln.ProductID)
			total := lvl.PriceCents * int64(ln.Quantity)
			o.Items = append(o.Items, orders.OrderItem{
				ProductID:       ln.ProductID,
				ProductName:     lvl.Name,
				Quantity:        ln.Quantity,
				UnitPriceCents:  lvl.PriceCents,
				TotalPriceCents: total,
			})
			o.TotalCents += total
		}

		created, err := tx.Orders.Create(ctx, o)
		if err != nil {
			return err
		}
		placed = created
		return nil
	})
	recordReserve(err)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, events.OrderPlaced, placed, lines)
	return placed, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling gives the
// order's stock back in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status orders.Status, reason *string) (*orders.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", orders.ErrInvalidStatus, status)
	}
	return s.transition(ctx, orderID, func(o *orders.Order) error {
		if !orders.CanTransition(o.Status, status) {
			return fmt.Errorf("%w: %s -> %s", orders.ErrInvalidTransition, o.Status, status)
		}
		return nil
	}, status, reason)
}

// CancelMyOrder lets a customer cancel their own order while it is pending.
// Orders of other users look like missing orders.
func (s *OrderService) CancelMyOrder(ctx context.Context, userID, orderID int64, reason *string) (*orders.Order, error) {
	return s.transition(ctx, orderID, func(o *orders.Order) error {
		if o.UserID != userID {
			return orders.ErrOrderNotFound
		}
		if o.Status != orders.StatusPending {
			return fmt.Errorf("%w: only pending orders can be cancelled, order is %s", orders.ErrInvalidTransition, o.Status)
		}
		return nil
	}, orders.StatusCancelled, reason)
}

func (s *OrderService) transition(ctx context.Context, orderID int64, allow func(o *orders.Order) error, status orders.Status, reason *string) (*orders.Order, error) {
	var (
		released *inventory.ReleaseResult
		lines    []inventory.LineItem
		number   string
	)
	err := s.ledger.runTx(ctx, "update order status", func(tx *storage.SalesTx) error {
		released, lines = nil, nil

		o, err := tx.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := allow(o); err != nil {
			return err
		}
		number = o.OrderNumber

		if status == orders.StatusCancelled && len(o.Items) > 0 {
			lines = o.Lines()
			if released, err = tx.Stock.Release(ctx, lines); err != nil {
				return err
			}
		}
		return tx.Orders.UpdateStatus(ctx, orderID, status, orders.UpdateStatusOpts{CancelledReason: reason})
	})
	if err != nil {
		return nil, err
	}

	if released != nil {
		s.ledger.recordRelease(orderID, released)
		s.afterCommit(ctx, events.OrderCancelled, &orders.Order{ID: orderID, OrderNumber: number}, lines)
	}

	s.logger.Infow("order status updated", "order_id", orderID, "status", status)
	return s.orders.GetByID(ctx, orderID)
}

// DeleteOrder removes an order. Stock is given back unless the order was
// already cancelled, since cancelling released it.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	var (
		released *inventory.ReleaseResult
		deleted  *orders.Order
	)
	err := s.ledger.runTx(ctx, "delete order", func(tx *storage.SalesTx) error {
		released = nil

		o, err := tx.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != orders.StatusCancelled && len(o.Items) > 0 {
			if released, err = tx.Stock.Release(ctx, o.Lines()); err != nil {
				return err
			}
		}
		deleted = o
		return tx.Orders.Delete(ctx, orderID)
	})
	if err != nil {
		return err
	}

	var lines []inventory.LineItem
	if released != nil {
		s.ledger.recordRelease(orderID, released)
		lines = deleted.Lines()
	}
	s.afterCommit(ctx, events.OrderDeleted, deleted, lines)
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*orders.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// GetUserOrder is GetOrder restricted to the orders of userID.
func (s *OrderService) GetUserOrder(ctx context.Context, userID, orderID int64) (*orders.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int) ([]orders.Order, int, error) {
	return s.orders.ListAll(ctx, status, limit, offset)
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, status string, limit, offset int) ([]orders.Order, int, error) {
	return s.orders.ListByUser(ctx, userID, status, limit, offset)
}

// afterCommit drops stale product cache entries and announces the stock
// movement. Neither can undo the committed change, so failures are logged.
func (s *OrderService) afterCommit(ctx context.Context, t events.Type, o *orders.Order, lines []inventory.LineItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
	defer cancel()

	if len(lines) > 0 {
		ids := make([]int64, 0, len(lines))
		for _, ln := range lines {
			ids = append(ids, ln.ProductID)
		}
		if err := s.cache.Invalidate(ctx, ids...); err != nil {
			s.logger.Warnw("product cache invalidation failed", "order_id", o.ID, "error", err)
		}
	}

	e := events.New(t, o.ID, o.OrderNumber, lines)
	if err := s.publisher.Publish(ctx, o.OrderNumber, e); err != nil {
		s.logger.Errorw("publish order event failed", "type", t, "order_id", o.ID, "error", err)
	}
}
