// Package handler exposes catalog browsing and entry creation over REST.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

// CatalogHandler handles the catalog endpoints.
type CatalogHandler struct {
	svc    *catalog.Service
	logger *slog.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(svc *catalog.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: logger}
}

// Routes mounts the catalog endpoints.
func (h *CatalogHandler) Routes(r chi.Router) {
	r.Get("/options", h.Options)
	r.Post("/categories", h.CreateCategory)
	r.Post("/subcategories", h.CreateSubcategory)
}

// Options searches catalog entries for one identifier field.
func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	f := record.Field(r.URL.Query().Get("field"))
	if !f.Valid() || !f.IsIdentifier() {
		writeError(w, http.StatusBadRequest, "field must be one of type, category, subcategory, currency, wallet")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	options, err := h.svc.Options(r.Context(), orgID, f, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.Error("catalog search failed", "field", f, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if options == nil {
		options = []catalog.Option{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

type createCategoryRequest struct {
	Name   string     `json:"name"`
	TypeID *uuid.UUID `json:"type_id,omitempty"`
}

// CreateCategory registers a new category.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	opt, err := h.svc.CreateCategory(r.Context(), orgID, req.Name, req.TypeID)
	if err != nil {
		h.logger.Error("category creation failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, opt)
}

type createSubcategoryRequest struct {
	Name     string    `json:"name"`
	ParentID uuid.UUID `json:"parent_id"`
}

// CreateSubcategory registers a new subcategory under a category.
func (h *CatalogHandler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req createSubcategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ParentID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "parent_id is required")
		return
	}

	opt, err := h.svc.CreateSubcategory(r.Context(), orgID, req.Name, req.ParentID)
	if err != nil {
		h.logger.Error("subcategory creation failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, opt)
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
