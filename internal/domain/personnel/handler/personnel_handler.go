// Package handler exposes personnel payment summaries over REST.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/personnel"
)

// PersonnelHandler handles the personnel endpoints.
type PersonnelHandler struct {
	svc    *personnel.Service
	logger *slog.Logger
}

// NewPersonnelHandler creates a personnel handler.
func NewPersonnelHandler(svc *personnel.Service, logger *slog.Logger) *PersonnelHandler {
	return &PersonnelHandler{svc: svc, logger: logger}
}

// Routes mounts the personnel endpoints.
func (h *PersonnelHandler) Routes(r chi.Router) {
	r.Get("/payments", h.PaymentSummaries)
}

// PaymentSummaries returns one payment summary per worker.
func (h *PersonnelHandler) PaymentSummaries(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	summaries, err := h.svc.PaymentSummaries(r.Context(), orgID)
	if err != nil {
		h.logger.Error("payment summaries failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []personnel.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
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
