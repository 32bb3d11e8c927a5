package products

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/inventory"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSlug   = errors.New("product with this slug already exists")
	ErrInvalidProduct  = errors.New("invalid product")
)

type Product struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description *string          `json:"description,omitempty"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	BrandID     *int64           `json:"brand_id,omitempty"`
	PriceCents  int64            `json:"price_cents"`
	Stock       int              `json:"stock"`
	Sold        int              `json:"sold"`
	Status      inventory.Status `json:"status" swaggertype:"string" enums:"active,inactive,out_of_stock"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Level is the product as the stock ledger sees it.
func (p *Product) Level() inventory.StockLevel {
	return inventory.StockLevel{
		ProductID:  p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Stock:      p.Stock,
		Sold:       p.Sold,
		Status:     p.Status,
	}
}

// Prepare validates p and reconciles its status with its stock.
func (p *Product) Prepare() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidProduct)
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidProduct)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must be >= 0", ErrInvalidProduct)
	}
	if p.Sold < 0 {
		return fmt.Errorf("%w: sold must be >= 0", ErrInvalidProduct)
	}
	if p.Status == "" {
		p.Status = inventory.StatusActive
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProduct, p.Status)
	}
	p.Status = inventory.StatusForStock(p.Status, p.Stock)
	return nil
}
