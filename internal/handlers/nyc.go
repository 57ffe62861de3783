package handlers

import (
	"net/http"
	"strings"

	"github.com/ukydev/fleet-tolls/internal/listing"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/opendata"
	"github.com/ukydev/fleet-tolls/internal/resources"
)

// NYCHandler looks up NYC open-data violations for the fleet.
type NYCHandler struct {
	base
}

// NewNYCHandler creates a new NYC violations handler
func NewNYCHandler(deps Deps) *NYCHandler {
	return &NYCHandler{base: newBase(deps)}
}

// Violations handles GET /api/nyc-violations. With a plates parameter
// (comma separated) only those plates are looked up; otherwise every
// vehicle of the fleet is.
func (h *NYCHandler) Violations(w http.ResponseWriter, r *http.Request) {
	q, err := h.listQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	vehicles, err := h.vehicles(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	plates := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		if v.PlateNumber != "" {
			plates = append(plates, v.PlateNumber)
		}
	}
	violations, err := h.deps.OpenData.ViolationsByPlates(r.Context(), plates)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := listing.Apply(opendata.Join(vehicles, violations), resources.NYCColumns, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, page)
}

func (h *NYCHandler) vehicles(r *http.Request) ([]models.Vehicle, error) {
	raw := r.URL.Query().Get("plates")
	if raw == "" {
		return resources.Vehicles.Fetch(r.Context(), h.deps.Upstream, h.call(r), nil)
	}
	var vehicles []models.Vehicle
	for _, p := range strings.Split(raw, ",") {
		if p = models.NormalizePlate(p); p != "" {
			vehicles = append(vehicles, models.Vehicle{PlateNumber: p})
		}
	}
	return vehicles, nil
}
