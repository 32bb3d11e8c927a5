package inventory

// Status is the sellable state of a product row.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusOutOfStock Status = "out_of_stock"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOutOfStock:
		return true
	}
	return false
}

// MaxLineQuantity bounds the units of one product in a batch, after
// duplicate lines are merged. Keep it in sync with the lte tag below.
const MaxLineQuantity = 100000

// LineItem is one (product, quantity) pair of an order.
type LineItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=100000"`
}

// StockLevel is the stock-relevant projection of a products row, as read
// or as left behind by an adjustment.
type StockLevel struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	Sold       int    `json:"sold"`
	Status     Status `json:"status"`
}
