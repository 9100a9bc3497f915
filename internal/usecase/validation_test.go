package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/ligue-crm/internal/view"
)

func TestParseFilterInput(t *testing.T) {
	f, errs := ParseFilterInput(FilterInput{
		Search: "  ana ",
		Status: "client",
		Preset: "7D",
		From:   "2024-05-01",
		To:     "2024-05-10",
		Sort:   "Name",
		Desc:   "true",
	})

	assert.Empty(t, errs)
	assert.Equal(t, "ana", f.Search)
	assert.Equal(t, "client", f.Status)
	assert.Equal(t, view.Preset7d, f.Preset)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, view.SortName, f.SortBy)
	assert.True(t, f.SortDesc)
}

// TestParseFilterInputErrors - cada campo inválido gera seu próprio erro
func TestParseFilterInputErrors(t *testing.T) {
	tests := []struct {
		name  string
		input FilterInput
		field string
	}{
		{"preset desconhecido", FilterInput{Preset: "yesterday"}, "preset"},
		{"from inválido", FilterInput{From: "10/05/2024"}, "from"},
		{"to inválido", FilterInput{To: "ontem"}, "to"},
		{"sort desconhecido", FilterInput{Sort: "phone"}, "sort"},
		{"desc inválido", FilterInput{Desc: "talvez"}, "desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ParseFilterInput(tt.input)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tt.field, errs[0].Field)
			}
		})
	}
}

func TestParseFilterInputAcceptsInvertedRange(t *testing.T) {
	f, errs := ParseFilterInput(FilterInput{From: "2024-05-10", To: "2024-05-01"})

	assert.Empty(t, errs)
	assert.True(t, f.To.Before(f.From))
}

func TestValidateDraft(t *testing.T) {
	valid := Draft{LeadID: 1, Name: "Ana", Status: "new"}
	assert.Empty(t, ValidateDraft(valid))

	invalid := Draft{
		Name:   strings.Repeat("a", 201),
		Phone:  strings.Repeat("9", 41),
		Status: " ",
	}
	errs := ValidateDraft(invalid)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"id", "name", "phone", "status"}, fields)
}
