// Package view deriva do snapshot de leads as projeções do painel: recorte
// filtrado, paginação e agregados. Toda função é pura; mesmos registros e
// mesmo estado sempre dão a mesma saída.
package view

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type DatePreset string

const (
	PresetNone  DatePreset = ""
	PresetAll   DatePreset = "all"
	PresetToday DatePreset = "today"
	Preset7d    DatePreset = "7d"
	Preset30d   DatePreset = "30d"
)

func (p DatePreset) Valid() bool {
	switch p {
	case PresetNone, PresetAll, PresetToday, Preset7d, Preset30d:
		return true
	}
	return false
}

// FilterState é tudo que o usuário controla na view atual. From e To são
// datas de calendário (só A/M/D contam); zero significa sem limite.
type FilterState struct {
	Search   string     `json:"search,omitempty"`
	Status   string     `json:"status,omitempty"`
	Origin   string     `json:"origin,omitempty"`
	Preset   DatePreset `json:"preset,omitempty"`
	From     time.Time  `json:"from,omitempty"`
	To       time.Time  `json:"to,omitempty"`
	SortBy   SortKey    `json:"sort_by,omitempty"`
	SortDesc bool       `json:"sort_desc,omitempty"`
}

func (f FilterState) Equal(o FilterState) bool {
	return f.Search == o.Search &&
		f.Status == o.Status &&
		f.Origin == o.Origin &&
		f.Preset == o.Preset &&
		sameDay(f.From, o.From) &&
		sameDay(f.To, o.To) &&
		f.SortBy == o.SortBy &&
		f.SortDesc == o.SortDesc
}

// Key é a impressão digital do filtro: dois filtros Equal têm a mesma Key.
func (f FilterState) Key() string {
	h := fnv.New64a()
	for _, part := range []string{
		f.Search, f.Status, f.Origin, string(f.Preset),
		dayKey(f.From), dayKey(f.To),
		string(f.SortBy), strconv.FormatBool(f.SortDesc),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func dayKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateRange é um intervalo semiaberto [start, end); limite zero fica aberto.
type dateRange struct {
	start time.Time
	end   time.Time
}

func (r dateRange) bounded() bool { return !r.start.IsZero() || !r.end.IsZero() }

func (r dateRange) contains(t time.Time) bool {
	if !r.bounded() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !r.start.IsZero() && t.Before(r.start) {
		return false
	}
	if !r.end.IsZero() && !t.Before(r.end) {
		return false
	}
	return true
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// resolveRange converte o preset ou as datas explícitas em instantes de loc.
// O limite superior é o começo do dia seguinte a To, então To vale até o fim
// do dia.
func resolveRange(f FilterState, now time.Time, loc *time.Location) dateRange {
	today := startOfDay(now.In(loc), loc)
	switch f.Preset {
	case PresetAll:
		return dateRange{}
	case PresetToday:
		return dateRange{start: today, end: today.AddDate(0, 0, 1)}
	case Preset7d:
		return dateRange{start: today.AddDate(0, 0, -6), end: today.AddDate(0, 0, 1)}
	case Preset30d:
		return dateRange{start: today.AddDate(0, 0, -29), end: today.AddDate(0, 0, 1)}
	}

	var r dateRange
	if !f.From.IsZero() {
		r.start = startOfDay(f.From, loc)
	}
	if !f.To.IsZero() {
		r.end = startOfDay(f.To, loc).AddDate(0, 0, 1)
	}
	return r
}

type matcher struct {
	search string
	status string
	origin string
	dates  dateRange
}

func newMatcher(f FilterState, now time.Time, loc *time.Location) matcher {
	return matcher{
		search: strings.ToLower(strings.TrimSpace(f.Search)),
		status: strings.TrimSpace(f.Status),
		origin: strings.TrimSpace(f.Origin),
		dates:  resolveRange(f, now, loc),
	}
}

func (m matcher) match(l entity.Lead) bool {
	if !m.dates.contains(l.CreatedAt) {
		return false
	}
	if m.status != "" && !strings.EqualFold(m.status, l.RawStatus()) {
		return false
	}
	if m.origin != "" && !strings.EqualFold(m.origin, l.OriginLabel()) {
		return false
	}
	if m.search != "" && !matchesSearch(l, m.search) {
		return false
	}
	return true
}

func matchesSearch(l entity.Lead, q string) bool {
	for _, field := range []string{l.NameValue(), l.PhoneValue(), l.SubjectValue(), l.OriginLabel()} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Filter devolve os registros que passam em todos os predicados de f, na
// ordem de entrada. now só é usado pelos presets de data.
func Filter(records []entity.Lead, f FilterState, now time.Time, loc *time.Location) []entity.Lead {
	if loc == nil {
		loc = time.UTC
	}
	m := newMatcher(f, now, loc)
	out := make([]entity.Lead, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}
