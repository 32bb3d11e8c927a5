package inventory

import (
	"fmt"
	"sort"
)

// Normalize validates a batch, merges duplicate products and sorts by
// product id. Every writer locks rows in the same order, so two batches
// sharing products cannot deadlock each other.
func Normalize(lines []LineItem) ([]LineItem, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyBatch
	}

	merged := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 {
			return nil, fmt.Errorf("%w: product id %d", ErrInvalidLine, l.ProductID)
		}
		if l.Quantity <= 0 || l.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: quantity %d for product %d", ErrInvalidLine, l.Quantity, l.ProductID)
		}
		// Both terms are bounded, so the sum cannot overflow.
		merged[l.ProductID] += l.Quantity
		if merged[l.ProductID] > MaxLineQuantity {
			return nil, fmt.Errorf("%w: more than %d units of product %d", ErrInvalidLine, MaxLineQuantity, l.ProductID)
		}
	}

	out := make([]LineItem, 0, len(merged))
	for id, qty := range merged {
		out = append(out, LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// CheckReserve reports why qty units of lvl cannot be reserved, or nil.
func CheckReserve(lvl StockLevel, qty int) error {
	if lvl.Status == StatusInactive {
		return &StockError{Kind: KindProductInactive, ProductID: lvl.ProductID, Name: lvl.Name, Requested: qty}
	}
	if lvl.Stock < qty {
		return &StockError{
			Kind:      KindInsufficientStock,
			ProductID: lvl.ProductID,
			Name:      lvl.Name,
			Requested: qty,
			Available: lvl.Stock,
		}
	}
	return nil
}

// ApplyReserve mutates lvl for a reservation that already passed CheckReserve.
func ApplyReserve(lvl *StockLevel, qty int) {
	lvl.Stock -= qty
	lvl.Sold += qty
	if lvl.Stock == 0 {
		lvl.Status = StatusOutOfStock
	}
}

func ApplyRelease(lvl *StockLevel, qty int) {
	lvl.Stock += qty
	lvl.Sold -= qty
	if lvl.Sold < 0 {
		lvl.Sold = 0
	}
	if lvl.Status == StatusOutOfStock && lvl.Stock > 0 {
		lvl.Status = StatusActive
	}
}

// StatusForStock keeps the out_of_stock invariant when an operator edits
// stock directly. inactive always wins.
func StatusForStock(current Status, stock int) Status {
	switch {
	case current == StatusInactive:
		return StatusInactive
	case stock == 0:
		return StatusOutOfStock
	default:
		return StatusActive
	}
}

// Quantities sums requested units, used for logging and metrics.
func Quantities(lines []LineItem) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
