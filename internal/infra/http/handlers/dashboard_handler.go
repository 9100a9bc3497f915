package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/internal/view"
)

type ingestor interface {
	Refresh(ctx context.Context) error
	Status() usecase.IngestionStatus
}

type DashboardHandler struct {
	UC          *usecase.DashboardUseCase
	Ingest      ingestor
	rateLimiter *RateLimiter
	logger      *zap.Logger
}

func NewDashboardHandler(uc *usecase.DashboardUseCase, ingest ingestor, refreshPerMinute int, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{
		UC:          uc,
		Ingest:      ingest,
		rateLimiter: NewRateLimiter(refreshPerMinute, time.Minute),
		logger:      logger,
	}
}

func (h *DashboardHandler) Close() {
	h.rateLimiter.Stop()
}

type ListResponse struct {
	Items   []entity.Lead    `json:"items"`
	Total   int              `json:"total"`
	Filter  view.FilterState `json:"filter"`
	Version uint64           `json:"version"`
}

func parseFilter(r *http.Request) (view.FilterState, []usecase.ValidationError) {
	q := r.URL.Query()
	return usecase.ParseFilterInput(usecase.FilterInput{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Origin: q.Get("origin"),
		Preset: q.Get("preset"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Sort:   q.Get("sort"),
		Desc:   q.Get("desc"),
	})
}

// List (GET /leads)
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	items := h.UC.FilteredView(f)
	if items == nil {
		items = []entity.Lead{}
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Items:   items,
		Total:   len(items),
		Filter:  f,
		Version: h.UC.Store.Version(),
	})
}

// Page (GET /leads/page?page=N&filter_key=K). filter_key é o valor devolvido
// na página anterior; se o filtro mudou desde então, a resposta é a página 1.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)

	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, usecase.ValidationError{Field: "page", Message: "must be an integer"})
		} else {
			page = n
		}
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	cursor := view.Cursor{FilterKey: r.URL.Query().Get("filter_key"), Page: page}
	writeJSON(w, http.StatusOK, h.UC.PageAt(cursor, f))
}

func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, h.UC.KPIs(f))
}

func (h *DashboardHandler) Charts(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, h.UC.ChartSeries(f))
}

func (h *DashboardHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, h.UC.Kanban(f))
}

// Export (GET /leads/export) devolve o recorte filtrado em CSV.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	filename := fmt.Sprintf("leads-%s.csv", time.Now().In(h.UC.Pipeline.Location).Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := h.UC.ExportCSV(w, f); err != nil {
		h.logger.Warn("export interrompido", zap.Error(err))
	}
}

func (h *DashboardHandler) Stages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.UC.Stages())
}

// Lead (GET /leads/{id})
func (h *DashboardHandler) Lead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_ID", "id inválido")
		return
	}

	lead, ok := h.UC.Lead(id)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "LEAD_NOT_FOUND", "lead não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Refresh (POST /leads/refresh) recarrega a tabela sob demanda.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		return
	}

	if err := h.Ingest.Refresh(r.Context()); err != nil {
		var ierr *usecase.IngestionError
		switch {
		case errors.As(err, &ierr):
			writeErrorResponse(w, http.StatusBadGateway, ierr.Code, ierr.Message)
		case errors.Is(err, usecase.ErrIngestorClosed):
			writeErrorResponse(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "serviço encerrando")
		default:
			writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "falha ao recarregar leads")
		}
		return
	}

	writeJSON(w, http.StatusOK, h.Ingest.Status())
}
