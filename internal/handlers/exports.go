package handlers

import (
	"net/http"
	"strconv"

	"github.com/ukydev/fleet-tolls/internal/db"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ExportHistoryHandler lists recorded exports.
type ExportHistoryHandler struct {
	base
}

// NewExportHistoryHandler creates a new export history handler
func NewExportHistoryHandler(deps Deps) *ExportHistoryHandler {
	return &ExportHistoryHandler{base: newBase(deps)}
}

// List handles GET /api/exports?resource=&limit=.
func (h *ExportHistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.deps.Exports == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, middleware.CodeUnavailable, "Export history is not enabled")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	cursor, err := h.deps.Exports.FindExports(r.Context(), db.ExportFilter(r.URL.Query().Get("resource")), db.NewestFirst(int64(limit)))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer cursor.Close(r.Context())

	records := []models.ExportRecord{}
	if err := cursor.All(r.Context(), &records); err != nil {
		h.respondError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, map[string]any{"items": records})
}
