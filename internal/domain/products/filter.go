package products

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/domain/inventory"
)

type Sort string

const (
	SortNewest      Sort = "newest"
	SortPriceAsc    Sort = "price_asc"
	SortPriceDesc   Sort = "price_desc"
	SortBestSelling Sort = "best_selling"
)

// SearchFilter narrows product listings. The zero value matches everything.
type SearchFilter struct {
	Query         string
	CategoryID    *int64
	BrandID       *int64
	Status        inventory.Status
	MinPriceCents *int64
	MaxPriceCents *int64
	InStock       bool
	// PublicOnly hides inactive products from the storefront.
	PublicOnly bool
	Sort       Sort
}

// ParseSearchFilter reads ?q=&category_id=&brand_id=&status=&min_price=&max_price=&in_stock=&sort=
func ParseSearchFilter(q url.Values) (SearchFilter, error) {
	f := SearchFilter{
		Query: strings.TrimSpace(q.Get("q")),
		Sort:  SortNewest,
	}

	var err error
	if f.CategoryID, err = optionalID(q, "category_id"); err != nil {
		return f, err
	}
	if f.BrandID, err = optionalID(q, "brand_id"); err != nil {
		return f, err
	}
	if f.MinPriceCents, err = optionalCents(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPriceCents, err = optionalCents(q, "max_price"); err != nil {
		return f, err
	}
	if f.MinPriceCents != nil && f.MaxPriceCents != nil && *f.MinPriceCents > *f.MaxPriceCents {
		return f, fmt.Errorf("min_price must not exceed max_price")
	}

	if s := strings.TrimSpace(q.Get("status")); s != "" {
		f.Status = inventory.Status(s)
		if !f.Status.Valid() {
			return f, fmt.Errorf("invalid status %q", s)
		}
	}

	if s := strings.TrimSpace(q.Get("in_stock")); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, fmt.Errorf("invalid in_stock %q", s)
		}
		f.InStock = v
	}

	if s := strings.TrimSpace(q.Get("sort")); s != "" {
		switch Sort(s) {
		case SortNewest, SortPriceAsc, SortPriceDesc, SortBestSelling:
			f.Sort = Sort(s)
		default:
			return f, fmt.Errorf("invalid sort %q", s)
		}
	}

	return f, nil
}

func optionalID(q url.Values, key string) (*int64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	return &id, nil
}

func optionalCents(q url.Values, key string) (*int64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	return &v, nil
}

// Where renders the filter as a SQL predicate over table alias p with $n
// placeholders numbered from 1.
func (f SearchFilter) Where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(p.name ILIKE $%d ESCAPE '\' OR p.description ILIKE $%d ESCAPE '\')`, n, n))
	}
	if f.CategoryID != nil {
		add("p.category_id = $%d", *f.CategoryID)
	}
	if f.BrandID != nil {
		add("p.brand_id = $%d", *f.BrandID)
	}
	if f.Status != "" {
		add("p.status = $%d", string(f.Status))
	}
	if f.PublicOnly {
		conds = append(conds, "p.status <> 'inactive'")
	}
	if f.MinPriceCents != nil {
		add("p.price_cents >= $%d", *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		add("p.price_cents <= $%d", *f.MaxPriceCents)
	}
	if f.InStock {
		conds = append(conds, "p.stock > 0")
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

func (f SearchFilter) OrderBy() string {
	switch f.Sort {
	case SortPriceAsc:
		return "p.price_cents ASC, p.id DESC"
	case SortPriceDesc:
		return "p.price_cents DESC, p.id DESC"
	case SortBestSelling:
		return "p.sold DESC, p.id DESC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

// Match applies the same predicate to an in-memory product.
func (f SearchFilter) Match(p *Product) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		desc := ""
		if p.Description != nil {
			desc = strings.ToLower(*p.Description)
		}
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(desc, q) {
			return false
		}
	}
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	if f.BrandID != nil && (p.BrandID == nil || *p.BrandID != *f.BrandID) {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.PublicOnly && p.Status == inventory.StatusInactive {
		return false
	}
	if f.MinPriceCents != nil && p.PriceCents < *f.MinPriceCents {
		return false
	}
	if f.MaxPriceCents != nil && p.PriceCents > *f.MaxPriceCents {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

// Less orders two products the way OrderBy does.
func (f SearchFilter) Less(a, b *Product) bool {
	switch f.Sort {
	case SortPriceAsc:
		if a.PriceCents != b.PriceCents {
			return a.PriceCents < b.PriceCents
		}
	case SortPriceDesc:
		if a.PriceCents != b.PriceCents {
			return a.PriceCents > b.PriceCents
		}
	case SortBestSelling:
		if a.Sold != b.Sold {
			return a.Sold > b.Sold
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID > b.ID
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
