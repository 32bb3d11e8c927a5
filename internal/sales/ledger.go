// Package sales runs the stock-reservation protocol: every reserve or
// release happens inside one store transaction together with the order
// change that caused it.
package sales

import (
	"context"
	"errors"
	"expvar"

	"storefront/internal/domain/inventory"
	"storefront/internal/domain/storage"

	"go.uber.org/zap"
)

var (
	reservationsOK       = expvar.NewInt("stock_reservations_ok")
	reservationsRejected = expvar.NewInt("stock_reservations_rejected")
	releases             = expvar.NewInt("stock_releases")
	txRetries            = expvar.NewInt("stock_tx_retries")
)

type UnitOfWork interface {
	WithSalesTx(ctx context.Context, fn func(s *storage.SalesTx) error) error
}

func recordReserve(err error) {
	switch {
	case err == nil:
		reservationsOK.Add(1)
	case errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrProductInactive),
		errors.Is(err, inventory.ErrInsufficientStock):
		reservationsRejected.Add(1)
	}
}

// StockLedger owns the sales transaction policy. Reserve and Release apply
// one batch as their own transaction; OrderService runs its order changes
// through the same ledger.
type StockLedger struct {
	uow    UnitOfWork
	logger *zap.SugaredLogger
}

func NewStockLedger(uow UnitOfWork, logger *zap.SugaredLogger) *StockLedger {
	return &StockLedger{uow: uow, logger: logger}
}

// runTx runs fn in a sales transaction and runs it once more when the
// first attempt failed for a retryable reason. fn must not keep state
// between attempts.
func (l *StockLedger) runTx(ctx context.Context, op string, fn func(s *storage.SalesTx) error) error {
	err := l.uow.WithSalesTx(ctx, fn)
	if err == nil || !storage.IsRetryable(err) || ctx.Err() != nil {
		return err
	}

	txRetries.Add(1)
	l.logger.Warnw("retrying sales transaction", "op", op, "error", err)
	return l.uow.WithSalesTx(ctx, fn)
}

// recordRelease accounts for a committed release.
func (l *StockLedger) recordRelease(orderID int64, res *inventory.ReleaseResult) {
	releases.Add(1)
	if len(res.Missing) == 0 {
		return
	}
	l.logger.Warnw("released stock for products that no longer exist",
		"order_id", orderID,
		"product_ids", res.Missing,
	)
}

// Reserve takes stock for every line or for none of them.
func (l *StockLedger) Reserve(ctx context.Context, lines []inventory.LineItem) (*inventory.Reservation, error) {
	var res *inventory.Reservation
	err := l.runTx(ctx, "reserve stock", func(s *storage.SalesTx) error {
		r, err := s.Stock.Reserve(ctx, lines)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	recordReserve(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Release gives back stock for every line. Lines whose product no longer
// exists are skipped and reported in the result.
func (l *StockLedger) Release(ctx context.Context, lines []inventory.LineItem) (*inventory.ReleaseResult, error) {
	var res *inventory.ReleaseResult
	err := l.runTx(ctx, "release stock", func(s *storage.SalesTx) error {
		r, err := s.Stock.Release(ctx, lines)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.recordRelease(0, res)
	return res, nil
}
