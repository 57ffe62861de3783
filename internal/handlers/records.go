package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ukydev/fleet-tolls/internal/export"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/resources"
)

// ListHandler serves a paged list and its export for one upstream resource.
type ListHandler[T any] struct {
	base
	def resources.Definition[T]
}

// NewListHandler creates a list handler for def.
func NewListHandler[T any](deps Deps, def resources.Definition[T]) *ListHandler[T] {
	return &ListHandler[T]{base: newBase(deps), def: def}
}

// List handles GET requests for a filtered, sorted page of rows.
func (h *ListHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	q, err := h.listQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	page, err := h.def.List(r.Context(), h.deps.Upstream, h.call(r), r.URL.Query(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, page)
}

// Export handles GET requests for the filtered rows as a file.
func (h *ListHandler[T]) Export(w http.ResponseWriter, r *http.Request) {
	h.sendExport(w, r, h.def.Name, func(out io.Writer, f export.Format, at time.Time) (int, error) {
		return h.def.ExportTo(r.Context(), h.deps.Upstream, h.call(r), r.URL.Query(), out, f, at)
	})
}

func (h *ListHandler[T]) itemPath(r *http.Request) string {
	return h.def.Path + "/" + url.PathEscape(r.PathValue("id"))
}

// Get handles GET requests for a single row.
func (h *ListHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := h.deps.Upstream.GetJSON(r.Context(), h.call(r), h.itemPath(r), nil, &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, item)
}

// forward sends a prepared DTO upstream and relays the upstream's answer.
// An empty upstream body is answered with the DTO that was sent.
func (h *ListHandler[T]) forward(w http.ResponseWriter, r *http.Request, method, path string, status int, in any) {
	var out json.RawMessage
	if err := h.deps.Upstream.SendJSON(r.Context(), h.call(r), method, path, in, &out); err != nil {
		h.respondError(w, r, err)
		return
	}
	if len(out) == 0 {
		middleware.JSONResponse(w, status, in)
		return
	}
	middleware.JSONResponse(w, status, out)
}

// updatePtr is satisfied by pointers to update DTOs.
type updatePtr[U any] interface {
	*U
	models.Input
}

// RecordHandler adds editing to a list handler.
type RecordHandler[T, U any, PU updatePtr[U]] struct {
	*ListHandler[T]
}

// NewTollHandler serves /api/tolls.
func NewTollHandler(deps Deps) *RecordHandler[models.Toll, models.TollUpdate, *models.TollUpdate] {
	return &RecordHandler[models.Toll, models.TollUpdate, *models.TollUpdate]{NewListHandler(deps, resources.Tolls)}
}

// NewViolationHandler serves /api/parking-violations.
func NewViolationHandler(deps Deps) *RecordHandler[models.ParkingViolation, models.ViolationUpdate, *models.ViolationUpdate] {
	return &RecordHandler[models.ParkingViolation, models.ViolationUpdate, *models.ViolationUpdate]{NewListHandler(deps, resources.Violations)}
}

// Update handles PUT requests. Only the DTO's fields reach the upstream API.
func (h *RecordHandler[T, U, PU]) Update(w http.ResponseWriter, r *http.Request) {
	in := PU(new(U))
	if !h.decode(w, r, in) {
		return
	}
	h.forward(w, r, http.MethodPut, h.itemPath(r), http.StatusOK, in)
}
