package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xavierca1/ligue-crm/internal/view"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FilterInput é o filtro cru, sem tipo, vindo da query string ou das flags da CLI.
type FilterInput struct {
	Search string
	Status string
	Origin string
	Preset string
	From   string
	To     string
	Sort   string
	Desc   string
}

// ParseFilterInput converte a entrada crua em view.FilterState. Intervalo com
// To antes de From é aceito e simplesmente não casa com nada.
func ParseFilterInput(input FilterInput) (view.FilterState, []ValidationError) {
	var errors []ValidationError
	f := view.FilterState{
		Search: strings.TrimSpace(input.Search),
		Status: strings.TrimSpace(input.Status),
		Origin: strings.TrimSpace(input.Origin),
	}

	preset := view.DatePreset(strings.ToLower(strings.TrimSpace(input.Preset)))
	if !preset.Valid() {
		errors = append(errors, ValidationError{"preset", "must be one of all, today, 7d, 30d"})
	} else {
		f.Preset = preset
	}

	if s := strings.TrimSpace(input.From); s != "" {
		if t, ok := parseDate(s); ok {
			f.From = t
		} else {
			errors = append(errors, ValidationError{"from", "must be a valid date (YYYY-MM-DD)"})
		}
	}
	if s := strings.TrimSpace(input.To); s != "" {
		if t, ok := parseDate(s); ok {
			f.To = t
		} else {
			errors = append(errors, ValidationError{"to", "must be a valid date (YYYY-MM-DD)"})
		}
	}

	sortKey := view.SortKey(strings.ToLower(strings.TrimSpace(input.Sort)))
	if !sortKey.Valid() {
		errors = append(errors, ValidationError{"sort", "must be one of created_at, name, status, origin"})
	} else {
		f.SortBy = sortKey
	}

	if s := strings.TrimSpace(input.Desc); s != "" {
		desc, err := strconv.ParseBool(s)
		if err != nil {
			errors = append(errors, ValidationError{"desc", "must be true or false"})
		}
		f.SortDesc = desc
	}

	return f, errors
}

func ValidateDraft(d Draft) []ValidationError {
	var errors []ValidationError

	if d.LeadID <= 0 {
		errors = append(errors, ValidationError{"id", "is required"})
	}
	if utf8.RuneCountInString(d.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}
	if utf8.RuneCountInString(d.Phone) > 40 {
		errors = append(errors, ValidationError{"phone", "must not exceed 40 characters"})
	}
	if utf8.RuneCountInString(d.Subject) > 5000 {
		errors = append(errors, ValidationError{"subject", "must not exceed 5000 characters"})
	}
	if strings.TrimSpace(d.Status) == "" {
		errors = append(errors, ValidationError{"status", "is required"})
	} else if utf8.RuneCountInString(d.Status) > 64 {
		errors = append(errors, ValidationError{"status", "must not exceed 64 characters"})
	}
	if utf8.RuneCountInString(d.Stage) > 32 {
		errors = append(errors, ValidationError{"stage", "must not exceed 32 characters"})
	}
	if utf8.RuneCountInString(d.Origin) > 120 {
		errors = append(errors, ValidationError{"origin", "must not exceed 120 characters"})
	}

	return errors
}

func joinValidationErrors(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func parseDate(dateStr string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
