package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func numbered(n int) []entity.Lead {
	out := make([]entity.Lead, n)
	for i := range out {
		out[i] = entity.Lead{ID: int64(i + 1)}
	}
	return out
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 15))
	assert.Equal(t, 1, TotalPages(15, 15))
	assert.Equal(t, 2, TotalPages(16, 15))
	assert.Equal(t, 3, TotalPages(31, 15))
	assert.Equal(t, 1, TotalPages(3, 0))
}

// TestPaginatePartitionsFilteredView - concatenar as páginas reproduz a lista
func TestPaginatePartitionsFilteredView(t *testing.T) {
	for _, n := range []int{0, 1, 14, 15, 16, 44, 45, 46} {
		records := numbered(n)
		first := Paginate(records, 1, 15)

		var all []entity.Lead
		for p := 1; p <= first.TotalPages; p++ {
			page := Paginate(records, p, 15)
			assert.LessOrEqual(t, len(page.Items), 15)
			all = append(all, page.Items...)
		}
		assert.Equal(t, ids(records), ids(all), "n=%d", n)
	}
}

func TestPaginateClampsOutOfRangePage(t *testing.T) {
	records := numbered(20)

	last := Paginate(records, 99, 15)
	assert.Equal(t, 2, last.Page)
	assert.Len(t, last.Items, 5)

	first := Paginate(records, -3, 15)
	assert.Equal(t, 1, first.Page)
	assert.Len(t, first.Items, 15)
}

func TestPaginateEmptyHasOneEmptyPage(t *testing.T) {
	res := Paginate(nil, 1, 15)

	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 0, res.Total)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

// TestCursorResetsPageOnFilterChange - qualquer mudança de filtro volta à página 1
func TestCursorResetsPageOnFilterChange(t *testing.T) {
	first := Cursor{Page: 3}.WithFilter(FilterState{})
	assert.Equal(t, 3, first.Page)
	assert.Equal(t, FilterState{}.Key(), first.FilterKey)

	same := Cursor{FilterKey: first.FilterKey, Page: 2}.WithFilter(FilterState{})
	assert.Equal(t, 2, same.Page)

	changed := Cursor{FilterKey: first.FilterKey, Page: 2}.WithFilter(FilterState{Search: "ana"})
	assert.Equal(t, 1, changed.Page)
	assert.Equal(t, FilterState{Search: "ana"}.Key(), changed.FilterKey)

	assert.Equal(t, 1, NewCursor().Page)
}

func TestFilterKeyFollowsEqual(t *testing.T) {
	a := FilterState{Status: "new", From: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	b := FilterState{Status: "new", From: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)}
	require.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	b.SortDesc = true
	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, FilterState{Search: "ab"}.Key(), FilterState{Search: "a", Status: "b"}.Key())
}
