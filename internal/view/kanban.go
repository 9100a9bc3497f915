package view

import (
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type Column struct {
	Key   string        `json:"key"`
	Title string        `json:"title"`
	Color string        `json:"color,omitempty"`
	Known bool          `json:"known"`
	Count int           `json:"count"`
	Leads []entity.Lead `json:"leads"`
}

// Kanban agrupa os registros em uma coluna por etapa do catálogo, na ordem do
// catálogo. Lead sem status cai na coluna padrão; status fora do catálogo
// ganham colunas no fim, na ordem em que aparecem.
func Kanban(records []entity.Lead, catalog *entity.StageCatalog) []Column {
	stages := catalog.Stages()
	cols := make([]Column, 0, len(stages))
	index := make(map[string]int, len(stages))
	for _, s := range stages {
		index[s.Key] = len(cols)
		cols = append(cols, Column{Key: s.Key, Title: s.Title, Color: s.Color, Known: true, Leads: []entity.Lead{}})
	}

	defaultKey := catalog.DefaultKey()
	for _, r := range records {
		key := r.StatusKey()
		if key == "" {
			key = defaultKey
		}
		i, ok := index[key]
		if !ok {
			i = len(cols)
			index[key] = i
			title := strings.TrimSpace(r.RawStatus())
			cols = append(cols, Column{Key: key, Title: title, Leads: []entity.Lead{}})
		}
		cols[i].Leads = append(cols[i].Leads, r)
		cols[i].Count++
	}
	return cols
}
