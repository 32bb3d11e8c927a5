package inventory

import (
	"context"
	"errors"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

// Repository is the Postgres Store. The conditional UPDATE takes the row
// lock and re-evaluates its WHERE clause against the latest committed row,
// so concurrent reservations of one product serialize on that row even
// under READ COMMITTED.
type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const reserveSQL = `
UPDATE products
   SET stock      = stock - $2,
       sold       = sold + $2,
       status     = CASE WHEN stock - $2 = 0 THEN 'out_of_stock' ELSE status END,
       updated_at = now()
 WHERE id = $1
   AND status <> 'inactive'
   AND stock >= $2
RETURNING id, name, price_cents, stock, sold, status`

const releaseSQL = `
UPDATE products
   SET stock      = stock + $2,
       sold       = GREATEST(sold - $2, 0),
       status     = CASE WHEN status = 'out_of_stock' AND stock + $2 > 0 THEN 'active' ELSE status END,
       updated_at = now()
 WHERE id = $1
RETURNING id, name, price_cents, stock, sold, status`

func (r *Repository) ReserveOne(ctx context.Context, productID int64, qty int) (*StockLevel, error) {
	lvl, err := scanLevel(r.db.QueryRow(ctx, reserveSQL, productID, qty))
	if err == nil {
		return lvl, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, &TransactionError{Op: "reserve stock", Err: err}
	}

	// The precondition failed; read the row to say why.
	cur, err := r.Get(ctx, productID)
	if err != nil {
		return nil, &TransactionError{Op: "inspect stock", Err: err}
	}
	if cur == nil {
		return nil, NotFound(productID, qty)
	}
	if err := CheckReserve(*cur, qty); err != nil {
		return nil, err
	}
	// The row satisfied the precondition by the time we looked: another
	// writer got in between. Let the caller retry the whole batch.
	return nil, &TransactionError{Op: "reserve stock", Err: errors.New("concurrent update")}
}

func (r *Repository) ReleaseOne(ctx context.Context, productID int64, qty int) (*StockLevel, error) {
	lvl, err := scanLevel(r.db.QueryRow(ctx, releaseSQL, productID, qty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &TransactionError{Op: "release stock", Err: err}
	}
	return lvl, nil
}

// Get returns the current level, or nil when the product does not exist.
func (r *Repository) Get(ctx context.Context, productID int64) (*StockLevel, error) {
	lvl, err := scanLevel(r.db.QueryRow(ctx, `
SELECT id, name, price_cents, stock, sold, status
FROM products
WHERE id = $1`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return lvl, nil
}

func scanLevel(row pgx.Row) (*StockLevel, error) {
	var (
		lvl    StockLevel
		status string
	)
	if err := row.Scan(&lvl.ProductID, &lvl.Name, &lvl.PriceCents, &lvl.Stock, &lvl.Sold, &status); err != nil {
		return nil, err
	}
	lvl.Status = Status(status)
	return &lvl, nil
}
