package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductInactive    = errors.New("product is inactive")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrTransactionFailure = errors.New("stock transaction failed")
	ErrEmptyBatch         = errors.New("at least one line item is required")
	ErrInvalidLine        = errors.New("invalid line item")
)

type Kind string

const (
	KindProductNotFound   Kind = "product_not_found"
	KindProductInactive   Kind = "product_inactive"
	KindInsufficientStock Kind = "insufficient_stock"
)

// StockError rejects a whole reservation because of one product.
type StockError struct {
	Kind      Kind   `json:"kind"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"product_name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *StockError) Error() string {
	switch e.Kind {
	case KindProductNotFound:
		return fmt.Sprintf("product %d not found", e.ProductID)
	case KindProductInactive:
		return fmt.Sprintf("product %q (%d) is inactive", e.Name, e.ProductID)
	case KindInsufficientStock:
		return fmt.Sprintf("insufficient stock for %q (%d): requested %d, available %d",
			e.Name, e.ProductID, e.Requested, e.Available)
	}
	return fmt.Sprintf("stock error %s for product %d", e.Kind, e.ProductID)
}

func (e *StockError) Is(target error) bool {
	switch e.Kind {
	case KindProductNotFound:
		return target == ErrProductNotFound
	case KindProductInactive:
		return target == ErrProductInactive
	case KindInsufficientStock:
		return target == ErrInsufficientStock
	}
	return false
}

func NotFound(productID int64, requested int) *StockError {
	return &StockError{Kind: KindProductNotFound, ProductID: productID, Requested: requested}
}

// TransactionError is an infrastructure failure while adjusting stock. The
// batch it belongs to was rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailure
}

// AsStockError extracts the product-level rejection from err, if any.
func AsStockError(err error) (*StockError, bool) {
	var se *StockError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
