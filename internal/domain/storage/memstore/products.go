package memstore

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/domain/products"
)

type ProductStore struct {
	db *DB
	tx *state
}

func (s *ProductStore) CreateProduct(_ context.Context, p *products.Product) (*products.Product, error) {
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	var out products.Product
	err := s.db.view(s.tx, func(st *state) error {
		if slugTaken(st, p.Slug, 0) {
			return products.ErrDuplicateSlug
		}
		st.nextProductID++
		now := s.db.now()

		row := *p
		row.ID = st.nextProductID
		row.CreatedAt = now
		row.UpdatedAt = now
		st.products[row.ID] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductStore) GetProductByID(_ context.Context, id int64) (*products.Product, error) {
	var (
		out   products.Product
		found bool
	)
	_ = s.db.view(s.tx, func(st *state) error {
		out, found = st.products[id]
		return nil
	})
	if !found {
		return nil, nil
	}
	return &out, nil
}

// GetProductForUpdate needs no row lock: transactions already run one at a
// time.
func (s *ProductStore) GetProductForUpdate(ctx context.Context, id int64) (*products.Product, error) {
	return s.GetProductByID(ctx, id)
}

func (s *ProductStore) ListProducts(_ context.Context, f products.SearchFilter, limit, offset int) ([]*products.Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	var matched []*products.Product
	_ = s.db.view(s.tx, func(st *state) error {
		for _, p := range st.products {
			if f.Match(&p) {
				matched = append(matched, &p)
			}
		}
		return nil
	})

	sort.Slice(matched, func(i, j int) bool { return f.Less(matched[i], matched[j]) })

	total := len(matched)
	if offset >= total {
		return []*products.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *ProductStore) UpdateProduct(_ context.Context, p *products.Product) (*products.Product, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("%w: product ID is required", products.ErrInvalidProduct)
	}
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	var out products.Product
	err := s.db.view(s.tx, func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return products.ErrProductNotFound
		}
		if slugTaken(st, p.Slug, p.ID) {
			return products.ErrDuplicateSlug
		}

		row := *p
		row.Sold = cur.Sold
		row.CreatedAt = cur.CreatedAt
		row.UpdatedAt = s.db.now()
		st.products[row.ID] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductStore) DeleteProduct(_ context.Context, id int64) error {
	return s.db.view(s.tx, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return products.ErrProductNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func slugTaken(st *state, slug string, except int64) bool {
	for id, p := range st.products {
		if id != except && p.Slug == slug {
			return true
		}
	}
	return false
}
