package view

import (
	"cmp"
	"slices"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type SortKey string

const (
	SortNone      SortKey = ""
	SortCreatedAt SortKey = "created_at"
	SortName      SortKey = "name"
	SortStatus    SortKey = "status"
	SortOrigin    SortKey = "origin"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortCreatedAt, SortName, SortStatus, SortOrigin:
		return true
	}
	return false
}

// Sort ordena records no lugar pela chave. Empates mantêm a ordem de entrada;
// SortNone deixa a ordem do store (created_at decrescente).
func Sort(records []entity.Lead, key SortKey, desc bool) {
	var compare func(a, b entity.Lead) int
	switch key {
	case SortCreatedAt:
		compare = func(a, b entity.Lead) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortName:
		compare = func(a, b entity.Lead) int { return compareFold(a.NameValue(), b.NameValue()) }
	case SortStatus:
		compare = func(a, b entity.Lead) int { return compareFold(a.RawStatus(), b.RawStatus()) }
	case SortOrigin:
		compare = func(a, b entity.Lead) int { return compareFold(a.OriginLabel(), b.OriginLabel()) }
	default:
		return
	}
	if desc {
		asc := compare
		compare = func(a, b entity.Lead) int { return asc(b, a) }
	}
	slices.SortStableFunc(records, compare)
}

func compareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}
