// Package router assembles the gateway's routes and middleware chain.
package router

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-tolls/internal/auth"
	"github.com/ukydev/fleet-tolls/internal/handlers"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/resources"
)

// Options are the HTTP-level settings of the gateway.
type Options struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// ProxyTransport is used for pass-through requests; nil means http.DefaultTransport.
	ProxyTransport http.RoundTripper
}

// NewRouter builds the gateway handler.
func NewRouter(deps handlers.Deps, opts Options) http.Handler {
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	mux := http.NewServeMux()

	// Initialize handlers
	tolls := handlers.NewTollHandler(deps)
	violations := handlers.NewViolationHandler(deps)
	invoices := handlers.NewInvoiceHandler(deps)
	companies := handlers.NewCompanyHandler(deps)
	ezpass := handlers.NewListHandler(deps, resources.EZPass)
	nyc := handlers.NewNYCHandler(deps)
	session := handlers.NewSessionHandler(deps)
	history := handlers.NewExportHistoryHandler(deps)
	proxy := handlers.NewProxyHandler(deps, opts.ProxyTransport)

	// Health check
	mux.HandleFunc("GET /health", handlers.HealthCheck)

	// Tolls
	mux.HandleFunc("GET /api/tolls", tolls.List)
	mux.HandleFunc("GET /api/tolls/export", tolls.Export)
	mux.HandleFunc("GET /api/tolls/{id}", tolls.Get)
	mux.HandleFunc("PUT /api/tolls/{id}", tolls.Update)

	// Parking violations
	mux.HandleFunc("GET /api/parking-violations", violations.List)
	mux.HandleFunc("GET /api/parking-violations/export", violations.Export)
	mux.HandleFunc("GET /api/parking-violations/{id}", violations.Get)
	mux.HandleFunc("PUT /api/parking-violations/{id}", violations.Update)

	// Invoices
	mux.HandleFunc("GET /api/invoices", invoices.List)
	mux.HandleFunc("GET /api/invoices/export", invoices.Export)
	mux.HandleFunc("GET /api/invoices/{id}", invoices.Get)
	mux.HandleFunc("PUT /api/invoices/{id}/status", invoices.UpdateStatus)
	mux.HandleFunc("GET /api/invoices/{id}/export", invoices.ExportLineItems)

	// Companies
	mux.HandleFunc("GET /api/companies", companies.List)
	mux.HandleFunc("POST /api/companies", companies.Create)
	mux.HandleFunc("GET /api/companies/export", companies.Export)
	mux.HandleFunc("PUT /api/companies/{id}", companies.Update)

	// E-ZPass and NYC open data
	mux.HandleFunc("GET /api/ezpass", ezpass.List)
	mux.HandleFunc("GET /api/ezpass/export", ezpass.Export)
	mux.HandleFunc("GET /api/nyc-violations", nyc.Violations)

	// Session state
	mux.HandleFunc("GET /api/environment", session.GetEnvironment)
	mux.HandleFunc("POST /api/environment", session.SwitchEnvironment)
	mux.HandleFunc("GET /api/cooldown", session.Cooldown)
	mux.HandleFunc("GET /api/exports", history.List)

	// Everything else, including /api/auth/*, goes straight upstream.
	mux.Handle("/api/", proxy)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(deps.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.NewRateLimitMiddleware().RateLimit(opts.RateLimitRequests, opts.RateLimitWindow),
		middleware.NewAuthMiddleware(auth.NewInspector()).Authenticate,
		middleware.Environment(deps.Resolver),
		middleware.Cooldown(deps.Cooldowns),
	)
}
