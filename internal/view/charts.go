package view

import (
	"slices"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	NoStatusLabel = "no status"
	DayLayout     = "2006-01-02"

	DefaultDailyWindow = 30
)

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type ChartSeries struct {
	Status       []Bucket   `json:"status"`
	Origin       []Bucket   `json:"origin"`
	Daily        []DayCount `json:"daily"`
	TopCreatives []Bucket   `json:"top_creatives"`
}

// tally conta rótulos na ordem em que aparecem. Com fold, agrupa sem
// diferenciar maiúsculas, sob a primeira grafia vista.
type tally struct {
	fold    bool
	index   map[string]int
	buckets []Bucket
}

func newTally(fold bool) *tally { return &tally{fold: fold, index: make(map[string]int)} }

func (t *tally) add(label string) {
	key := label
	if t.fold {
		key = strings.ToLower(label)
	}
	if i, ok := t.index[key]; ok {
		t.buckets[i].Count++
		return
	}
	t.index[key] = len(t.buckets)
	t.buckets = append(t.buckets, Bucket{Label: label, Count: 1})
}

// sorted devolve os buckets por contagem decrescente; empate mantém a ordem de chegada.
func (t *tally) sorted() []Bucket {
	out := slices.Clone(t.buckets)
	if out == nil {
		out = []Bucket{}
	}
	slices.SortStableFunc(out, func(a, b Bucket) int { return b.Count - a.Count })
	return out
}

func StatusDistribution(records []entity.Lead) []Bucket {
	t := newTally(true)
	for _, r := range records {
		label := r.RawStatus()
		if label == "" {
			label = NoStatusLabel
		}
		t.add(label)
	}
	return t.sorted()
}

func OriginDistribution(records []entity.Lead) []Bucket {
	t := newTally(true)
	for _, r := range records {
		t.add(r.OriginLabel())
	}
	return t.sorted()
}

// DailySeries conta leads por dia de calendário em loc e fica com os window
// dias distintos mais recentes, em ordem cronológica.
func DailySeries(records []entity.Lead, loc *time.Location, window int) []DayCount {
	if loc == nil {
		loc = time.UTC
	}
	if window <= 0 {
		window = DefaultDailyWindow
	}
	counts := make(map[string]int)
	for _, r := range records {
		if r.CreatedAt.IsZero() {
			continue
		}
		counts[r.CreatedAt.In(loc).Format(DayLayout)]++
	}

	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	slices.Sort(days)
	if len(days) > window {
		days = days[len(days)-window:]
	}

	out := make([]DayCount, 0, len(days))
	for _, d := range days {
		out = append(out, DayCount{Day: d, Count: counts[d]})
	}
	return out
}

// TopCreatives ranqueia criativos por número de leads. limit <= 0 devolve todos.
func TopCreatives(records []entity.Lead, limit int) []Bucket {
	t := newTally(false)
	for _, r := range records {
		if ref := r.Creative(); ref != "" {
			t.add(ref)
		}
	}
	out := t.sorted()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
