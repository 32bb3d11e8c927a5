package products

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/inventory"
	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the data access abstraction for the product catalog.
type Store interface {
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	// GetProductByID returns (nil, nil) when the product does not exist.
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	// GetProductForUpdate is GetProductByID plus a row lock held until the
	// surrounding transaction ends.
	GetProductForUpdate(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, f SearchFilter, limit, offset int) ([]*Product, int, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const productColumns = `p.id, p.name, p.slug, p.description, p.category_id, p.brand_id,
       p.price_cents, p.stock, p.sold, p.status, p.created_at, p.updated_at`

func scanProduct(row pgx.Row, extra ...any) (*Product, error) {
	var (
		p      Product
		status string
	)
	dest := []any{
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.BrandID,
		&p.PriceCents, &p.Stock, &p.Sold, &status, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.Status = inventory.Status(status)
	return &p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO products AS p (name, slug, description, category_id, brand_id, price_cents, stock, sold, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + productColumns

	created, err := scanProduct(r.db.QueryRow(ctx, query,
		p.Name, p.Slug, p.Description, p.CategoryID, p.BrandID,
		p.PriceCents, p.Stock, p.Sold, string(p.Status),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (r *Repository) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
}

func (r *Repository) GetProductForUpdate(ctx context.Context, id int64) (*Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, id)
}

func (r *Repository) get(ctx context.Context, query string, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts returns a page of products matching f and the true total.
// Like the other listings it relies on COUNT(*) OVER() and falls back to a
// separate count when the page is past the end.
func (r *Repository) ListProducts(ctx context.Context, f SearchFilter, limit, offset int) ([]*Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	where, args := f.Where()
	n := len(args)
	q := fmt.Sprintf(`
SELECT %s,
       COUNT(*) OVER() AS total_count
FROM products p
WHERE %s
ORDER BY %s
LIMIT $%d OFFSET $%d`, productColumns, where, f.OrderBy(), n+1, n+2)

	rows, err := r.db.Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		list  = make([]*Product, 0, limit)
		total int
	)
	for rows.Next() {
		var t int
		p, err := scanProduct(rows, &t)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		if total == 0 {
			total = t
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}

	if len(list) == 0 && offset > 0 {
		countQ := fmt.Sprintf(`SELECT COUNT(*) FROM products p WHERE %s`, where)
		if err := r.db.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}

	return list, total, nil
}

// UpdateProduct overwrites the editable fields of p.ID. Stock edits go
// through the same status reconciliation as creation; sold is owned by the
// stock ledger and is not written here.
func (r *Repository) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("%w: product ID is required", ErrInvalidProduct)
	}
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	query := `
		UPDATE products AS p
		SET name=$1, slug=$2, description=$3, category_id=$4, brand_id=$5,
		    price_cents=$6, stock=$7, status=$8, updated_at=now()
		WHERE p.id=$9
		RETURNING ` + productColumns

	updated, err := scanProduct(r.db.QueryRow(ctx, query,
		p.Name, p.Slug, p.Description, p.CategoryID, p.BrandID,
		p.PriceCents, p.Stock, string(p.Status), p.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
