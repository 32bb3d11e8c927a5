package inventory

import (
	"context"
)

// Store adjusts a single product row. Both methods run inside the caller's
// transaction. ReserveOne must guard the write with the reservation
// precondition itself (a conditional UPDATE, not read-then-write) and
// return a *StockError when the precondition does not hold. ReleaseOne
// returns (nil, nil) for a product that no longer exists.
type Store interface {
	ReserveOne(ctx context.Context, productID int64, qty int) (*StockLevel, error)
	ReleaseOne(ctx context.Context, productID int64, qty int) (*StockLevel, error)
}

// Reservation is what a successful Reserve left behind, one level per
// normalized line.
type Reservation struct {
	Lines  []LineItem
	Levels []StockLevel
}

// LevelFor returns the post-reservation row for productID.
func (r *Reservation) LevelFor(productID int64) (StockLevel, bool) {
	for _, lvl := range r.Levels {
		if lvl.ProductID == productID {
			return lvl, true
		}
	}
	return StockLevel{}, false
}

type ReleaseResult struct {
	Levels []StockLevel
	// Missing lists products that were deleted since the reservation. They
	// are skipped.
	Missing []int64
}

// Ledger drives a batch of single-row adjustments. It stops at the first
// failure and returns it untouched; atomicity of the batch is the
// surrounding transaction's job.
type Ledger struct {
	store Store
}

func NewLedger(s Store) *Ledger {
	return &Ledger{store: s}
}

func (l *Ledger) Reserve(ctx context.Context, lines []LineItem) (*Reservation, error) {
	norm, err := Normalize(lines)
	if err != nil {
		return nil, err
	}

	res := &Reservation{Lines: norm, Levels: make([]StockLevel, 0, len(norm))}
	for _, line := range norm {
		lvl, err := l.store.ReserveOne(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		res.Levels = append(res.Levels, *lvl)
	}
	return res, nil
}

func (l *Ledger) Release(ctx context.Context, lines []LineItem) (*ReleaseResult, error) {
	norm, err := Normalize(lines)
	if err != nil {
		return nil, err
	}

	res := &ReleaseResult{Levels: make([]StockLevel, 0, len(norm))}
	for _, line := range norm {
		lvl, err := l.store.ReleaseOne(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if lvl == nil {
			res.Missing = append(res.Missing, line.ProductID)
			continue
		}
		res.Levels = append(res.Levels, *lvl)
	}
	return res, nil
}
