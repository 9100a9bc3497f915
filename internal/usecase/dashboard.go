package usecase

import (
	"io"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/store"
	"github.com/xavierca1/ligue-crm/internal/view"
)

// DashboardUseCase responde as consultas de view. Cada chamada deriva de um
// único snapshot do store, então nunca mistura duas versões da coleção.
type DashboardUseCase struct {
	Store    *store.Store
	Pipeline *view.Pipeline
}

func NewDashboardUseCase(st *store.Store, pipeline *view.Pipeline) *DashboardUseCase {
	return &DashboardUseCase{Store: st, Pipeline: pipeline}
}

func (uc *DashboardUseCase) FilteredView(f view.FilterState) []entity.Lead {
	return uc.Pipeline.FilteredView(uc.Store.Snapshot().Records, f)
}

func (uc *DashboardUseCase) Page(f view.FilterState, page int) view.PageResult {
	return uc.Pipeline.Page(uc.Store.Snapshot().Records, f, page)
}

// PageAt resolve a página pelo cursor do cliente: se o filtro mudou desde a
// última página servida, volta para a primeira.
func (uc *DashboardUseCase) PageAt(c view.Cursor, f view.FilterState) view.PageResult {
	c = c.WithFilter(f)
	return uc.Page(f, c.Page)
}

func (uc *DashboardUseCase) KPIs(f view.FilterState) view.KPIs {
	return uc.Pipeline.KPIs(uc.Store.Snapshot().Records, f)
}

func (uc *DashboardUseCase) ChartSeries(f view.FilterState) view.ChartSeries {
	return uc.Pipeline.ChartSeries(uc.Store.Snapshot().Records, f)
}

func (uc *DashboardUseCase) Kanban(f view.FilterState) []view.Column {
	return uc.Pipeline.Kanban(uc.Store.Snapshot().Records, f)
}

// ExportCSV grava o recorte filtrado em CSV. Falha de escrita volta como
// *TechnicalError.
func (uc *DashboardUseCase) ExportCSV(w io.Writer, f view.FilterState) error {
	rows := uc.Pipeline.Export(uc.Store.Snapshot().Records, f)
	if err := view.WriteCSV(w, rows); err != nil {
		return &TechnicalError{Code: "EXPORT_FAILED", Message: "falha ao gerar planilha", Err: err}
	}
	return nil
}

func (uc *DashboardUseCase) Stages() []entity.Stage {
	return uc.Pipeline.Catalog.Stages()
}

func (uc *DashboardUseCase) Lead(id int64) (entity.Lead, bool) {
	return uc.Store.Get(id)
}
