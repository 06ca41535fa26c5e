// Package handler exposes movement listings and CSV export over REST.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/movements"
)

// MovementsHandler handles the movement read endpoints.
type MovementsHandler struct {
	svc    *movements.Service
	logger *slog.Logger
}

// NewMovementsHandler creates a movements handler.
func NewMovementsHandler(svc *movements.Service, logger *slog.Logger) *MovementsHandler {
	return &MovementsHandler{svc: svc, logger: logger}
}

// Routes mounts the movement endpoints.
func (h *MovementsHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
}

// List returns the movement ledger, filtered and paginated.
func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, filter, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	items, err := h.svc.List(r.Context(), orgID, filter)
	if err != nil {
		h.logger.Error("movement listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []movements.Movement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": items})
}

// ExportCSV streams the filtered ledger as a spreadsheet-friendly CSV.
func (h *MovementsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	orgID, filter, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	items, err := h.svc.List(r.Context(), orgID, filter)
	if err != nil {
		h.logger.Error("movement export failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="movimientos.csv"`)
	if err := movements.WriteCSV(w, items); err != nil {
		h.logger.Error("csv rendering failed", "error", err)
	}
}

func (h *MovementsHandler) parseQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, movements.ListFilter, bool) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return uuid.Nil, movements.ListFilter{}, false
	}

	var filter movements.ListFilter
	q := r.URL.Query()

	if raw := q.Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid project_id")
			return uuid.Nil, filter, false
		}
		filter.ProjectID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, param+" must be YYYY-MM-DD")
			return uuid.Nil, filter, false
		}
		*dst = &t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return uuid.Nil, filter, false
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return uuid.Nil, filter, false
		}
		filter.Offset = n
	}
	return orgID, filter, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func organizationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-Organization-ID")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing X-Organization-ID header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid X-Organization-ID header")
		return uuid.Nil, false
	}
	return id, true
}
