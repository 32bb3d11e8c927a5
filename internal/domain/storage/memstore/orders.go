package memstore

import (
	"context"
	"sort"

	"storefront/internal/domain/orders"
)

type OrderStore struct {
	db *DB
	tx *state
}

func copyOrder(o orders.Order) orders.Order {
	if o.Items != nil {
		o.Items = append([]orders.OrderItem(nil), o.Items...)
	}
	return o
}

func (s *OrderStore) Create(_ context.Context, o *orders.Order) (*orders.Order, error) {
	if o.OrderNumber == "" {
		o.OrderNumber = s.db.gen.Generate(o.UserID)
	}
	if o.Status == "" {
		o.Status = orders.StatusPending
	}

	err := s.db.view(s.tx, func(st *state) error {
		st.nextOrderID++
		now := s.db.now()
		o.ID = st.nextOrderID
		o.CreatedAt = now
		o.UpdatedAt = now
		for i := range o.Items {
			st.nextItemID++
			o.Items[i].ID = st.nextItemID
			o.Items[i].OrderID = o.ID
		}
		st.orders[o.ID] = copyOrder(*o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderStore) GetByID(_ context.Context, id int64) (*orders.Order, error) {
	var (
		out   orders.Order
		found bool
	)
	_ = s.db.view(s.tx, func(st *state) error {
		var o orders.Order
		o, found = st.orders[id]
		out = copyOrder(o)
		return nil
	})
	if !found {
		return nil, orders.ErrOrderNotFound
	}
	return &out, nil
}

// GetForUpdate needs no row lock: transactions already run one at a time.
func (s *OrderStore) GetForUpdate(ctx context.Context, id int64) (*orders.Order, error) {
	return s.GetByID(ctx, id)
}

func (s *OrderStore) ListAll(ctx context.Context, status string, limit, offset int) ([]orders.Order, int, error) {
	return s.list(nil, status, limit, offset)
}

func (s *OrderStore) ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]orders.Order, int, error) {
	return s.list(&userID, status, limit, offset)
}

func (s *OrderStore) list(userID *int64, status string, limit, offset int) ([]orders.Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	var matched []orders.Order
	_ = s.db.view(s.tx, func(st *state) error {
		for _, o := range st.orders {
			if userID != nil && o.UserID != *userID {
				continue
			}
			if status != "" && string(o.Status) != status {
				continue
			}
			// Listings carry no items, same as the SQL backend.
			o.Items = nil
			matched = append(matched, o)
		}
		return nil
	})

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, id int64, status orders.Status, opts orders.UpdateStatusOpts) error {
	return s.db.view(s.tx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return orders.ErrOrderNotFound
		}
		now := s.db.now()
		o.Status = status
		o.CancelledReason, o.CancelledAt = nil, nil
		if status == orders.StatusCancelled {
			o.CancelledReason = opts.CancelledReason
			o.CancelledAt = &now
		}
		o.UpdatedAt = now
		st.orders[id] = o
		return nil
	})
}

func (s *OrderStore) Delete(_ context.Context, id int64) error {
	return s.db.view(s.tx, func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return orders.ErrOrderNotFound
		}
		delete(st.orders, id)
		return nil
	})
}
