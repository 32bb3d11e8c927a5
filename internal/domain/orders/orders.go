package orders

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	q   dbx.Querier
	gen *OrderNumberGenerator
}

func NewRepository(q dbx.Querier, gen *OrderNumberGenerator) *Repository {
	if gen == nil {
		panic("orders: OrderNumberGenerator is nil")
	}
	return &Repository{
		q:   q,
		gen: gen,
	}
}

const orderColumns = `id, order_number, user_id, status, total_cents, shipping_address, note,
       cancelled_reason, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row, extra ...any) (*Order, error) {
	var (
		o      Order
		status string
	)
	dest := []any{
		&o.ID, &o.OrderNumber, &o.UserID, &status, &o.TotalCents, &o.ShippingAddress, &o.Note,
		&o.CancelledReason, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

// Create persists the order snapshot. Assumes it runs inside the same
// transaction that reserved the stock for o.Items.
func (r *Repository) Create(ctx context.Context, o *Order) (*Order, error) {
	if o.OrderNumber == "" {
		o.OrderNumber = r.gen.Generate(o.UserID)
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	if err := r.q.QueryRow(ctx, `
		INSERT INTO orders (order_number, user_id, status, total_cents, shipping_address, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		o.OrderNumber, o.UserID, string(o.Status), o.TotalCents, o.ShippingAddress, o.Note,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := r.q.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price_cents, total_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPriceCents, it.TotalPriceCents,
		).Scan(&it.ID); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	return o, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r *Repository) get(ctx context.Context, query string, id int64) (*Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	o.Items = items
	return o, nil
}

func (r *Repository) loadItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.q.Query(ctx, `
SELECT id, order_id, product_id, product_name, quantity, unit_price_cents, total_price_cents
FROM order_items
WHERE order_id=$1
ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPriceCents, &it.TotalPriceCents,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListAll: admin – optional filter by status, with pagination, default limit is 30
func (r *Repository) ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error) {
	return r.list(ctx, nil, status, limit, offset)
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]Order, int, error) {
	return r.list(ctx, &userID, status, limit, offset)
}

func (r *Repository) list(ctx context.Context, userID *int64, status string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	args := []any{}
	arg := 1

	if userID != nil {
		where += fmt.Sprintf(" AND user_id = $%d", arg)
		args = append(args, *userID)
		arg++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", arg)
		args = append(args, status)
		arg++
	}

	q := fmt.Sprintf(`
SELECT %s,
       COUNT(*) OVER() AS total_count
FROM orders
WHERE %s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, orderColumns, where, arg, arg+1)

	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		out   []Order
		total int
	)
	for rows.Next() {
		var t int
		o, err := scanOrder(rows, &t)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, opts UpdateStatusOpts) error {
	cmd, err := r.q.Exec(ctx, `
UPDATE orders
SET status = $2,
    cancelled_reason = CASE WHEN $2 = 'cancelled' THEN $3::text ELSE NULL END,
    cancelled_at     = CASE WHEN $2 = 'cancelled' THEN now() ELSE NULL END,
    updated_at       = now()
WHERE id = $1`,
		id, string(status), opts.CancelledReason,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
