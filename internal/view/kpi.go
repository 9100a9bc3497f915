package view

import (
	"fmt"
	"math"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type KPIs struct {
	Total          int     `json:"total"`
	ClosedWon      int     `json:"closed_won"`
	Open           int     `json:"open"`
	ConversionRate float64 `json:"conversion_rate"`
	Conversion     string  `json:"conversion"`
}

// ComputeKPIs conta leads fechados e novos/em aberto em records, que já devem
// vir filtrados. Um lead está em aberto quando o catálogo marca seu status
// como aberto ou quando o atendimento está "open".
func ComputeKPIs(records []entity.Lead, catalog *entity.StageCatalog) KPIs {
	k := KPIs{Total: len(records)}
	for _, r := range records {
		if catalog.IsClosedWon(r.StatusKey()) {
			k.ClosedWon++
		}
		if catalog.IsOpen(r.StatusKey()) || r.AttendanceKey() == "open" {
			k.Open++
		}
	}
	k.ConversionRate = ConversionRate(k.ClosedWon, k.Total)
	k.Conversion = fmt.Sprintf("%.1f", k.ConversionRate)
	return k
}

// ConversionRate é won/total em porcentagem com uma casa decimal; 0 quando total é 0.
func ConversionRate(won, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(won) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
