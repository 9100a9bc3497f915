package view

import (
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// Pipeline junta as configurações de que toda derivação precisa. Cada método
// lê o relógio no máximo uma vez.
type Pipeline struct {
	Catalog      *entity.StageCatalog
	PageSize     int
	Location     *time.Location
	DailyWindow  int
	TopCreatives int
	Now          func() time.Time
}

func NewPipeline(catalog *entity.StageCatalog, pageSize int, loc *time.Location) *Pipeline {
	if catalog == nil {
		catalog = entity.NewStageCatalog(nil)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		Catalog:      catalog,
		PageSize:     pageSize,
		Location:     loc,
		DailyWindow:  DefaultDailyWindow,
		TopCreatives: 10,
		Now:          time.Now,
	}
}

// FilteredView aplica os predicados do filtro e depois a ordenação pedida.
func (p *Pipeline) FilteredView(records []entity.Lead, f FilterState) []entity.Lead {
	out := Filter(records, f, p.Now(), p.Location)
	Sort(out, f.SortBy, f.SortDesc)
	return out
}

func (p *Pipeline) Page(records []entity.Lead, f FilterState, page int) PageResult {
	res := Paginate(p.FilteredView(records, f), page, p.PageSize)
	res.FilterKey = f.Key()
	return res
}

func (p *Pipeline) KPIs(records []entity.Lead, f FilterState) KPIs {
	return ComputeKPIs(p.FilteredView(records, f), p.Catalog)
}

func (p *Pipeline) ChartSeries(records []entity.Lead, f FilterState) ChartSeries {
	filtered := p.FilteredView(records, f)
	return ChartSeries{
		Status:       StatusDistribution(filtered),
		Origin:       OriginDistribution(filtered),
		Daily:        DailySeries(filtered, p.Location, p.DailyWindow),
		TopCreatives: TopCreatives(filtered, p.TopCreatives),
	}
}

func (p *Pipeline) Kanban(records []entity.Lead, f FilterState) []Column {
	return Kanban(p.FilteredView(records, f), p.Catalog)
}

func (p *Pipeline) Export(records []entity.Lead, f FilterState) [][]string {
	return ExportRows(p.FilteredView(records, f), p.Location)
}
