// Package memstore keeps the storefront tables in process memory. It backs
// STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/inventory"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/products"
	"storefront/internal/domain/storage"
)

type state struct {
	products map[int64]products.Product
	orders   map[int64]orders.Order

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
}

func newState() *state {
	return &state{
		products: make(map[int64]products.Product),
		orders:   make(map[int64]orders.Order),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:      make(map[int64]products.Product, len(s.products)),
		orders:        make(map[int64]orders.Order, len(s.orders)),
		nextProductID: s.nextProductID,
		nextOrderID:   s.nextOrderID,
		nextItemID:    s.nextItemID,
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	return c
}

// DB is one in-memory database. Transactions are serialized: WithSalesTx
// holds the lock for the whole unit of work, works on a copy and swaps it
// in only when fn succeeds.
type DB struct {
	mu  sync.Mutex
	st  *state
	gen *orders.OrderNumberGenerator
	now func() time.Time
}

func New(gen *orders.OrderNumberGenerator) *DB {
	if gen == nil {
		panic("memstore: OrderNumberGenerator is nil")
	}
	return &DB{
		st:  newState(),
		gen: gen,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Container exposes the database through the same surface as the Postgres
// backend.
func (db *DB) Container() *storage.Container {
	return storage.Compose(&ProductStore{db: db}, &OrderStore{db: db}, db.WithSalesTx)
}

func (db *DB) WithSalesTx(ctx context.Context, fn func(s *storage.SalesTx) error) error {
	if err := ctx.Err(); err != nil {
		return &inventory.TransactionError{Op: "begin transaction", Err: err}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	work := db.st.clone()
	s := &storage.SalesTx{
		Stock:    inventory.NewLedger(&StockStore{db: db, tx: work}),
		Orders:   &OrderStore{db: db, tx: work},
		Products: &ProductStore{db: db, tx: work},
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &inventory.TransactionError{Op: "commit", Err: err}
	}

	db.st = work
	return nil
}

// view runs fn against the transaction state when there is one, otherwise
// against the committed state under the lock.
func (db *DB) view(tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.st)
}
