package storage

import (
	"context"
	"fmt"

	"storefront/internal/domain/inventory"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/products"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SalesTx is a temporary, tx-scoped set of repos for atomic units of work.
type SalesTx struct {
	Stock    *inventory.Ledger
	Orders   orders.Store
	Products products.Store
}

// TxRunner runs fn inside one transaction: every write fn made is committed
// when it returns nil and none is when it returns an error.
type TxRunner func(ctx context.Context, fn func(s *SalesTx) error) error

type Container struct {
	pool     *pgxpool.Pool // nil for in-process backends
	Products products.Store
	Orders   orders.Store
	runTx    TxRunner
}

func NewContainer(db *pgxpool.Pool, gen *orders.OrderNumberGenerator) *Container {
	c := &Container{
		pool:     db,
		Products: products.NewRepository(db),
		Orders:   orders.NewRepository(db, gen),
	}
	c.runTx = func(ctx context.Context, fn func(s *SalesTx) error) error {
		return c.withPgxTx(ctx, gen, fn)
	}
	return c
}

// Compose builds a Container around stores that manage their own
// transactions.
func Compose(p products.Store, o orders.Store, runTx TxRunner) *Container {
	return &Container{
		Products: p,
		Orders:   o,
		runTx:    runTx,
	}
}

// WithSalesTx runs a sales unit-of-work atomically.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s *SalesTx) error) error {
	if c.runTx == nil {
		return fmt.Errorf("storage container has no transaction runner")
	}
	return c.runTx(ctx, fn)
}

func (c *Container) withPgxTx(ctx context.Context, gen *orders.OrderNumberGenerator, fn func(s *SalesTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &inventory.TransactionError{Op: "begin transaction", Err: err}
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &SalesTx{
		Stock:    inventory.NewLedger(inventory.NewRepository(tx)),
		Orders:   orders.NewRepository(tx, gen),
		Products: products.NewRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &inventory.TransactionError{Op: "commit", Err: err}
	}
	return nil
}

// Ping reports whether the database is reachable. In-process backends are
// always reachable.
func (c *Container) Ping(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Ping(ctx)
}
