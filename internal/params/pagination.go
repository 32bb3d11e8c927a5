package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 15
	MaxLimit     = 50
	// MaxPage keeps Page*Limit inside an int4 offset.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Pagination is read from ?page=&limit= and echoed back with the listing.
type Pagination struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Page       int  `json:"page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ParsePagination never fails: bad values fall back to the defaults and
// limits above MaxLimit or pages above MaxPage are clamped.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Limit: DefaultLimit,
		Page:  1,
	}

	if limit, ok := positiveInt(q, "limit"); ok {
		p.Limit = min(limit, MaxLimit)
	}
	if page, ok := positiveInt(q, "page"); ok {
		p.Page = min(page, MaxPage)
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

func positiveInt(q url.Values, key string) (int, bool) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	if p.Limit > 0 {
		p.TotalPages = (total + p.Limit - 1) / p.Limit
	}
	p.HasPrev = p.Page > 1
	p.HasNext = p.Page*p.Limit < total
}
