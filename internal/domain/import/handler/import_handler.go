// Package handler exposes the import pipeline over REST.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/import/mapper"
	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/internal/domain/import/resolver"
	importservice "github.com/construlink/obra-tracker/internal/domain/import/service"
)

// ImportHandler handles the import session endpoints.
type ImportHandler struct {
	svc            *importservice.ImportService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewImportHandler creates an import handler.
func NewImportHandler(svc *importservice.ImportService, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes mounts the session endpoints.
func (h *ImportHandler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/mapping", h.GetMapping)
		r.Put("/mapping", h.SetMapping)
		r.Get("/incompatibilities", h.Incompatibilities)
		r.Post("/resolutions", h.Resolve)
		r.Post("/submit", h.Submit)
	})
}

type sessionResponse struct {
	SessionID  uuid.UUID         `json:"session_id"`
	FileName   string            `json:"file_name"`
	Headers    []string          `json:"headers"`
	Rows       int               `json:"rows"`
	SampleRows [][]string        `json:"sample_rows"`
	Mapping    map[string]string `json:"mapping"`
}

const sampleRowCount = 5

// CreateSession accepts a multipart upload and opens a session.
func (h *ImportHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	var projectID *uuid.UUID
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		projectID = &id
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}

	session, err := h.svc.CreateSession(r.Context(), orgID, projectID, header.Filename, data)
	if err != nil {
		h.logger.Warn("session creation failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sample := session.File.Rows
	if len(sample) > sampleRowCount {
		sample = sample[:sampleRowCount]
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:  session.ID,
		FileName:   session.FileName,
		Headers:    session.File.Headers,
		Rows:       len(session.File.Rows),
		SampleRows: sample,
		Mapping:    mappingToJSON(session.Mapping),
	})
}

type mappingResponse struct {
	Headers []string          `json:"headers"`
	Mapping map[string]string `json:"mapping"`
}

// GetMapping returns the session's current column mapping.
func (h *ImportHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mappingResponse{
		Headers: session.File.Headers,
		Mapping: mappingToJSON(session.Mapping),
	})
}

type setMappingRequest struct {
	Mapping map[string]string `json:"mapping"`
}

// SetMapping replaces the column mapping.
func (h *ImportHandler) SetMapping(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req setMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	m, err := mappingFromJSON(req.Mapping)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SetMapping(session.ID, m); err != nil {
		writeMappingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mappingResponse{
		Headers: session.File.Headers,
		Mapping: mappingToJSON(session.Mapping),
	})
}

// Incompatibilities lists unresolved identifier values.
func (h *ImportHandler) Incompatibilities(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	incs, err := h.svc.Incompatibilities(r.Context(), session.ID)
	if err != nil {
		writeMappingError(w, err)
		return
	}
	if incs == nil {
		incs = []resolver.Incompatibility{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"incompatibilities": incs})
}

type resolveRequest struct {
	Resolutions []resolver.Request `json:"resolutions"`
}

// Resolve applies operator decisions for unresolved values.
func (h *ImportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Resolutions) == 0 {
		writeError(w, http.StatusBadRequest, "no resolutions supplied")
		return
	}

	if err := h.svc.Resolve(r.Context(), session.ID, req.Resolutions); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitRequest struct {
	Rows []int `json:"rows"`
}

// Submit lands the batch. An optional body restricts it to a row subset.
func (h *ImportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.svc.Submit(r.Context(), session.ID, req.Rows)
	if err != nil {
		if isMappingError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("batch submit failed", "sessionID", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ImportHandler) session(w http.ResponseWriter, r *http.Request) (*importservice.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	session, err := h.svc.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

func mappingToJSON(m mapper.ColumnMapping) map[string]string {
	out := make(map[string]string, len(m))
	for col, f := range m {
		out[strconv.Itoa(col)] = string(f)
	}
	return out
}

func mappingFromJSON(in map[string]string) (mapper.ColumnMapping, error) {
	m := make(mapper.ColumnMapping, len(in))
	for rawCol, rawField := range in {
		col, err := strconv.Atoi(rawCol)
		if err != nil || col < 0 {
			return nil, errors.New("mapping keys must be non-negative column indices")
		}
		f := record.Field(rawField)
		if !f.Valid() {
			return nil, errors.New("unknown field " + strconv.Quote(rawField))
		}
		m[col] = f
	}
	return m, nil
}

func writeMappingError(w http.ResponseWriter, err error) {
	if isMappingError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if errors.Is(err, importservice.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func isMappingError(err error) bool {
	var verr *mapper.ValidationError
	return errors.As(err, &verr)
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
