package params

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 15, Page: 1, Offset: 0}},
		{"page=3&limit=10", Pagination{Limit: 10, Page: 3, Offset: 20}},
		{"limit=500", Pagination{Limit: MaxLimit, Page: 1, Offset: 0}},
		{"limit=-1&page=0", Pagination{Limit: 15, Page: 1, Offset: 0}},
		{"limit=abc&page=x", Pagination{Limit: 15, Page: 1, Offset: 0}},
		{"Limit=5", Pagination{Limit: 15, Page: 1, Offset: 0}},
		{"page=9223372036854775807", Pagination{Limit: 15, Page: MaxPage, Offset: (MaxPage - 1) * 15}},
		{"page=9223372036854775807&limit=50", Pagination{Limit: 50, Page: MaxPage, Offset: (MaxPage - 1) * 50}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParsePagination(q))
		})
	}
}

func TestComputeMeta(t *testing.T) {
	p := Pagination{Limit: 10, Page: 2, Offset: 10}
	p.ComputeMeta(25)

	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasPrev)
	assert.True(t, p.HasNext)

	p = Pagination{Limit: 10, Page: 3, Offset: 20}
	p.ComputeMeta(25)
	assert.False(t, p.HasNext)

	p = Pagination{Limit: MaxLimit, Page: MaxPage, Offset: (MaxPage - 1) * MaxLimit}
	p.ComputeMeta(25)
	assert.True(t, p.HasPrev)
	assert.False(t, p.HasNext)
	assert.Positive(t, p.Offset)

	p = Pagination{Limit: 10, Page: 1}
	p.ComputeMeta(0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
}
