package entity

import "strings"

// Stage descreve uma chave de status do funil no catálogo configurável.
type Stage struct {
	Key       string `json:"key" yaml:"key"`
	Title     string `json:"title" yaml:"title"`
	Color     string `json:"color,omitempty" yaml:"color"`
	ClosedWon bool   `json:"closed_won,omitempty" yaml:"closed_won"`
	Open      bool   `json:"open,omitempty" yaml:"open"`
}

// StageCatalog é o conjunto ordenado de etapas conhecidas. Status fora do
// catálogo continuam válidos e aparecem como estão.
type StageCatalog struct {
	stages []Stage
	index  map[string]int
}

func DefaultStages() []Stage {
	return []Stage{
		{Key: "new", Title: "Novo", Color: "#FCD34D", Open: true},
		{Key: "followup", Title: "Follow-up", Color: "#FCD34D"},
		{Key: "proposal_sent", Title: "Proposta Enviada", Color: "#A78BFA"},
		{Key: "contract_sent", Title: "Contrato Enviado", Color: "#6EE7FA"},
		{Key: "client", Title: "Cliente", Color: "#00E5A0", ClosedWon: true},
		{Key: "disqualified", Title: "Desqualificado", Color: "#F87171"},
		{Key: "lost", Title: "Perdido", Color: "#6B7280"},
	}
}

// NewStageCatalog mantém a primeira ocorrência de cada chave (sem diferenciar
// maiúsculas) e pula chaves vazias. Entrada vazia dá o catálogo padrão.
func NewStageCatalog(stages []Stage) *StageCatalog {
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	c := &StageCatalog{index: make(map[string]int, len(stages))}
	for _, s := range stages {
		key := strings.ToLower(strings.TrimSpace(s.Key))
		if key == "" {
			continue
		}
		if _, dup := c.index[key]; dup {
			continue
		}
		s.Key = key
		if s.Title == "" {
			s.Title = s.Key
		}
		c.index[key] = len(c.stages)
		c.stages = append(c.stages, s)
	}
	return c
}

func (c *StageCatalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

func (c *StageCatalog) Lookup(status string) (Stage, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return Stage{}, false
	}
	return c.stages[i], true
}

// DefaultKey é a etapa dada a rascunhos e cards do kanban sem status.
func (c *StageCatalog) DefaultKey() string {
	for _, s := range c.stages {
		if s.Open {
			return s.Key
		}
	}
	if len(c.stages) > 0 {
		return c.stages[0].Key
	}
	return "new"
}

func (c *StageCatalog) IsClosedWon(status string) bool {
	s, ok := c.Lookup(status)
	return ok && s.ClosedWon
}

func (c *StageCatalog) IsOpen(status string) bool {
	s, ok := c.Lookup(status)
	return ok && s.Open
}
