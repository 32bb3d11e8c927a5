package products

import (
	"net/url"
	"testing"
	"time"

	"storefront/internal/domain/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseSearchFilter_Defaults(t *testing.T) {
	f, err := ParseSearchFilter(url.Values{})

	require.NoError(t, err)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Empty(t, f.Query)
	assert.Nil(t, f.CategoryID)

	where, args := f.Where()
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}

func TestParseSearchFilter_AllFields(t *testing.T) {
	q := url.Values{
		"q":           {" running shoe "},
		"category_id": {"4"},
		"brand_id":    {"9"},
		"status":      {"active"},
		"min_price":   {"1000"},
		"max_price":   {"5000"},
		"in_stock":    {"true"},
		"sort":        {"price_desc"},
	}

	f, err := ParseSearchFilter(q)

	require.NoError(t, err)
	assert.Equal(t, "running shoe", f.Query)
	assert.Equal(t, int64(4), *f.CategoryID)
	assert.Equal(t, int64(9), *f.BrandID)
	assert.Equal(t, inventory.StatusActive, f.Status)
	assert.Equal(t, int64(1000), *f.MinPriceCents)
	assert.Equal(t, int64(5000), *f.MaxPriceCents)
	assert.True(t, f.InStock)
	assert.Equal(t, SortPriceDesc, f.Sort)
}

func TestParseSearchFilter_Invalid(t *testing.T) {
	tests := []struct {
		name string
		q    url.Values
	}{
		{"bad category", url.Values{"category_id": {"abc"}}},
		{"zero brand", url.Values{"brand_id": {"0"}}},
		{"negative price", url.Values{"min_price": {"-1"}}},
		{"inverted range", url.Values{"min_price": {"500"}, "max_price": {"100"}}},
		{"unknown status", url.Values{"status": {"archived"}}},
		{"bad in_stock", url.Values{"in_stock": {"maybe"}}},
		{"unknown sort", url.Values{"sort": {"random"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSearchFilter(tt.q)
			assert.Error(t, err)
		})
	}
}

func TestSearchFilter_WhereNumbersPlaceholders(t *testing.T) {
	f := SearchFilter{
		Query:         "50%_off",
		CategoryID:    ptr(int64(3)),
		MaxPriceCents: ptr(int64(900)),
		PublicOnly:    true,
		InStock:       true,
	}

	where, args := f.Where()

	assert.Equal(t,
		`(p.name ILIKE $1 ESCAPE '\' OR p.description ILIKE $1 ESCAPE '\') AND p.category_id = $2 AND p.status <> 'inactive' AND p.price_cents <= $3 AND p.stock > 0`,
		where)
	assert.Equal(t, []any{`%50\%\_off%`, int64(3), int64(900)}, args)
}

func TestSearchFilter_OrderBy(t *testing.T) {
	assert.Equal(t, "p.created_at DESC, p.id DESC", SearchFilter{}.OrderBy())
	assert.Equal(t, "p.price_cents ASC, p.id DESC", SearchFilter{Sort: SortPriceAsc}.OrderBy())
	assert.Equal(t, "p.sold DESC, p.id DESC", SearchFilter{Sort: SortBestSelling}.OrderBy())
}

func TestSearchFilter_Match(t *testing.T) {
	p := &Product{
		ID:          1,
		Name:        "Trail Running Shoe",
		Description: ptr("Lightweight"),
		CategoryID:  ptr(int64(2)),
		PriceCents:  4500,
		Stock:       3,
		Status:      inventory.StatusActive,
	}

	tests := []struct {
		name string
		f    SearchFilter
		want bool
	}{
		{"zero filter", SearchFilter{}, true},
		{"name match case-insensitive", SearchFilter{Query: "running"}, true},
		{"description match", SearchFilter{Query: "light"}, true},
		{"no text match", SearchFilter{Query: "sandal"}, false},
		{"category match", SearchFilter{CategoryID: ptr(int64(2))}, true},
		{"category mismatch", SearchFilter{CategoryID: ptr(int64(5))}, false},
		{"brand required but unset", SearchFilter{BrandID: ptr(int64(1))}, false},
		{"price in range", SearchFilter{MinPriceCents: ptr(int64(4000)), MaxPriceCents: ptr(int64(5000))}, true},
		{"price below min", SearchFilter{MinPriceCents: ptr(int64(5000))}, false},
		{"status mismatch", SearchFilter{Status: inventory.StatusInactive}, false},
		{"in stock", SearchFilter{InStock: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Match(p))
		})
	}
}

func TestSearchFilter_MatchHidesInactiveForPublic(t *testing.T) {
	p := &Product{ID: 1, Name: "Hidden", Stock: 4, Status: inventory.StatusInactive}

	assert.False(t, SearchFilter{PublicOnly: true}.Match(p))
	assert.True(t, SearchFilter{}.Match(p))
}

func TestSearchFilter_Less(t *testing.T) {
	now := time.Now()
	older := &Product{ID: 1, PriceCents: 100, Sold: 9, CreatedAt: now.Add(-time.Hour)}
	newer := &Product{ID: 2, PriceCents: 200, Sold: 1, CreatedAt: now}

	assert.True(t, SearchFilter{}.Less(newer, older))
	assert.True(t, SearchFilter{Sort: SortPriceAsc}.Less(older, newer))
	assert.True(t, SearchFilter{Sort: SortPriceDesc}.Less(newer, older))
	assert.True(t, SearchFilter{Sort: SortBestSelling}.Less(older, newer))
}

func TestProductPrepare(t *testing.T) {
	p := &Product{Name: "  Ball ", Slug: "ball", PriceCents: 100, Stock: 0}
	require.NoError(t, p.Prepare())
	assert.Equal(t, "Ball", p.Name)
	assert.Equal(t, inventory.StatusOutOfStock, p.Status)

	p = &Product{Name: "Ball", Slug: "ball", Stock: 3, Status: inventory.StatusOutOfStock}
	require.NoError(t, p.Prepare())
	assert.Equal(t, inventory.StatusActive, p.Status)

	p = &Product{Name: "Ball", Slug: "ball", Stock: -1}
	assert.ErrorIs(t, p.Prepare(), ErrInvalidProduct)

	p = &Product{Name: "", Slug: "ball"}
	assert.ErrorIs(t, p.Prepare(), ErrInvalidProduct)

	p = &Product{Name: "Ball", Slug: "ball", Status: "archived"}
	assert.ErrorIs(t, p.Prepare(), ErrInvalidProduct)
}
