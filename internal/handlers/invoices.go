package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/ukydev/fleet-tolls/internal/export"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/resources"
)

// InvoiceHandler serves /api/invoices.
type InvoiceHandler struct {
	*ListHandler[models.Invoice]
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(deps Deps) *InvoiceHandler {
	return &InvoiceHandler{NewListHandler(deps, resources.Invoices)}
}

func (h *InvoiceHandler) fetch(r *http.Request) (models.Invoice, error) {
	var inv models.Invoice
	err := h.deps.Upstream.GetJSON(r.Context(), h.call(r), h.itemPath(r), nil, &inv)
	return inv, err
}

// Get returns an invoice with totals and booking groups.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.fetch(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, inv.Detail())
}

// UpdateStatus handles PUT /api/invoices/{id}/status.
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in models.InvoiceStatusUpdate
	if !h.decode(w, r, &in) {
		return
	}
	h.forward(w, r, http.MethodPut, h.itemPath(r)+"/status", http.StatusOK, &in)
}

// ExportLineItems exports one invoice's line items ordered by booking.
func (h *InvoiceHandler) ExportLineItems(w http.ResponseWriter, r *http.Request) {
	inv, err := h.fetch(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	detail := inv.Detail()
	var items []models.InvoiceLineItem
	for _, g := range detail.Bookings {
		items = append(items, g.Items...)
	}
	title := "Invoice " + inv.ID
	if inv.CompanyName != "" {
		title += " - " + inv.CompanyName
	}
	h.sendExport(w, r, "invoice-"+inv.ID, func(out io.Writer, f export.Format, at time.Time) (int, error) {
		return len(items), export.Write(out, f, title, resources.LineItemColumns, items, at)
	})
}

// CompanyHandler serves /api/companies.
type CompanyHandler struct {
	*ListHandler[models.Company]
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(deps Deps) *CompanyHandler {
	return &CompanyHandler{NewListHandler(deps, resources.Companies)}
}

// Create handles POST /api/companies.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CompanyInput
	if !h.decode(w, r, &in) {
		return
	}
	h.forward(w, r, http.MethodPost, h.def.Path, http.StatusCreated, &in)
}

// Update handles PUT /api/companies/{id}.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.CompanyInput
	if !h.decode(w, r, &in) {
		return
	}
	h.forward(w, r, http.MethodPut, h.itemPath(r), http.StatusOK, &in)
}
