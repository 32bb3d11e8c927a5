package memstore

import (
	"context"

	"storefront/internal/domain/inventory"
)

// StockStore applies the ledger rules to the product rows of one
// transaction.
type StockStore struct {
	db *DB
	tx *state
}

func (s *StockStore) ReserveOne(_ context.Context, productID int64, qty int) (*inventory.StockLevel, error) {
	var out inventory.StockLevel
	err := s.db.view(s.tx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return inventory.NotFound(productID, qty)
		}
		lvl := p.Level()
		if err := inventory.CheckReserve(lvl, qty); err != nil {
			return err
		}
		inventory.ApplyReserve(&lvl, qty)
		p.Stock, p.Sold, p.Status = lvl.Stock, lvl.Sold, lvl.Status
		p.UpdatedAt = s.db.now()
		st.products[productID] = p
		out = lvl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *StockStore) ReleaseOne(_ context.Context, productID int64, qty int) (*inventory.StockLevel, error) {
	var (
		out   inventory.StockLevel
		found bool
	)
	_ = s.db.view(s.tx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return nil
		}
		found = true
		lvl := p.Level()
		inventory.ApplyRelease(&lvl, qty)
		p.Stock, p.Sold, p.Status = lvl.Stock, lvl.Sold, lvl.Status
		p.UpdatedAt = s.db.now()
		st.products[productID] = p
		out = lvl
		return nil
	})
	if !found {
		return nil, nil
	}
	return &out, nil
}
