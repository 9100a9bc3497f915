package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type leadLookup interface {
	Lead(id int64) (entity.Lead, bool)
}

type EditHandler struct {
	Session *usecase.EditSessionUseCase
	Leads   leadLookup
}

func NewEditHandler(session *usecase.EditSessionUseCase, leads leadLookup) *EditHandler {
	return &EditHandler{Session: session, Leads: leads}
}

type UpdateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Current (GET /edit)
func (h *EditHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Current())
}

// Open (POST /edit/{id}) abre a sessão com uma cópia do lead.
func (h *EditHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_ID", "id inválido")
		return
	}

	lead, ok := h.Leads.Lead(id)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "LEAD_NOT_FOUND", "lead não encontrado")
		return
	}

	view, err := h.Session.Open(lead)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Update (PATCH /edit) altera um campo do rascunho.
func (h *EditHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	view, err := h.Session.UpdateField(req.Field, req.Value)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Commit (POST /edit/commit) grava o rascunho no banco.
func (h *EditHandler) Commit(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Commit(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Current())
}

// Discard (DELETE /edit)
func (h *EditHandler) Discard(w http.ResponseWriter, r *http.Request) {
	view, err := h.Session.Discard()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeSessionError(w http.ResponseWriter, err error) {
	var (
		domainErr *usecase.DomainError
		commitErr *usecase.EditCommitError
	)
	switch {
	case errors.Is(err, usecase.ErrSessionNotOpen):
		writeErrorResponse(w, http.StatusConflict, "SESSION_NOT_OPEN", "nenhum lead em edição")
	case errors.Is(err, usecase.ErrSessionBusy):
		writeErrorResponse(w, http.StatusConflict, "SESSION_BUSY", "salvamento em andamento")
	case errors.Is(err, usecase.ErrUnknownField):
		writeErrorResponse(w, http.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	case errors.As(err, &domainErr):
		writeErrorResponse(w, http.StatusUnprocessableEntity, domainErr.Code, domainErr.Message)
	case errors.As(err, &commitErr):
		status := http.StatusBadGateway
		if errors.Is(err, entity.ErrLeadNotFound) {
			status = http.StatusNotFound
		}
		writeErrorResponse(w, status, commitErr.Code, commitErr.Message)
	default:
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "erro inesperado")
	}
}
