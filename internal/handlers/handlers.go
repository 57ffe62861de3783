// Package handlers serves the gateway's /api routes on top of the upstream client.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tolls/internal/cooldown"
	"github.com/ukydev/fleet-tolls/internal/db"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/events"
	"github.com/ukydev/fleet-tolls/internal/export"
	"github.com/ukydev/fleet-tolls/internal/listing"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/opendata"
	"github.com/ukydev/fleet-tolls/internal/resources"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

const maxBodyBytes = 1 << 20

// statusClientClosedRequest marks requests the caller abandoned before the
// upstream answered.
const statusClientClosedRequest = 499

// Deps are the collaborators shared by every handler.
type Deps struct {
	Upstream    *upstream.Client
	Resolver    *environment.Resolver
	Cooldowns   cooldown.Store
	OpenData    *opendata.Client
	Exports     db.ExportCollection // nil disables the export audit log
	Events      events.Publisher
	PageSize    int
	MaxPageSize int
	Logger      *log.Logger
	Now         func() time.Time
}

type base struct {
	deps Deps
}

func newBase(deps Deps) base {
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.PageSize <= 0 {
		deps.PageSize = 25
	}
	if deps.MaxPageSize < deps.PageSize {
		deps.MaxPageSize = 500
	}
	return base{deps: deps}
}

func (b *base) env(r *http.Request) environment.Name {
	if env, ok := environment.FromContext(r.Context()); ok {
		return env
	}
	return b.deps.Resolver.Default()
}

// call describes the inbound caller to the upstream client.
func (b *base) call(r *http.Request) upstream.Call {
	c := upstream.Call{
		Environment: b.env(r),
		RequestID:   middleware.GetRequestID(r.Context()),
	}
	if s, ok := middleware.GetSessionFromContext(r.Context()); ok {
		c.Token = s.Token
	}
	return c
}

func (b *base) log(r *http.Request) *log.Entry {
	fields := log.Fields{
		"request_id":  middleware.GetRequestID(r.Context()),
		"environment": b.env(r),
		"path":        r.URL.Path,
	}
	if s, ok := middleware.GetSessionFromContext(r.Context()); ok {
		fields["user"] = s.User()
	}
	return b.deps.Logger.WithFields(fields)
}

func (b *base) listQuery(r *http.Request) (listing.Query, error) {
	return listing.ParseQuery(r.URL.Query(), b.deps.PageSize, b.deps.MaxPageSize)
}

// decode reads a JSON body into in, then normalises and validates it.
// It answers the request itself and returns false on failure.
func (b *base) decode(w http.ResponseWriter, r *http.Request, in models.Input) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "Invalid JSON")
		return false
	}
	if err := models.Prepare(in); err != nil {
		b.respondError(w, r, err)
		return false
	}
	return true
}

// respondError maps an error onto the gateway's JSON error contract.
func (b *base) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.JSONResponse(w, http.StatusBadRequest, middleware.ErrorBody{
			Error:   middleware.CodeValidationFailed,
			Message: "Some fields are invalid",
			Fields:  verr.Fields,
		})
		return
	case errors.Is(err, export.ErrEmptyDataset):
		middleware.ErrorResponse(w, http.StatusUnprocessableEntity, middleware.CodeEmptyDataset, "There is no data to export")
		return
	case errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, listing.ErrInvalidQuery),
		errors.Is(err, listing.ErrUnknownColumn),
		errors.Is(err, resources.ErrInvalidFilter),
		errors.Is(err, resources.ErrUnknownResource):
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeInvalidRequest, err.Error())
		return
	case errors.Is(err, environment.ErrUnknownEnvironment):
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeUnknownEnvironment, err.Error())
		return
	case errors.Is(err, opendata.ErrTooManyRows):
		middleware.ErrorResponse(w, http.StatusUnprocessableEntity, middleware.CodeInvalidRequest, "Too many violations match these plates, narrow the plates list")
		return
	case errors.Is(err, context.Canceled):
		b.log(r).Debug("Client cancelled the request")
		middleware.ErrorResponse(w, statusClientClosedRequest, middleware.CodeCancelled, "Request cancelled")
		return
	}

	apiErr, ok := upstream.AsAPIError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			b.log(r).WithError(err).Warn("Upstream request timed out")
			middleware.ErrorResponse(w, http.StatusGatewayTimeout, middleware.CodeUpstreamUnavailable, "The upstream service did not answer in time")
			return
		}
		b.log(r).WithError(err).Error("Request failed")
		middleware.ErrorResponse(w, http.StatusInternalServerError, middleware.CodeInternal, "Internal server error")
		return
	}

	switch apiErr.Kind {
	case upstream.KindRateLimited:
		secs := cooldown.Seconds(apiErr.RetryAfter)
		if apiErr.Service == upstream.ServiceRydora {
			b.startCooldown(r, apiErr.RetryAfter)
			middleware.RateLimitedResponse(w, secs, middleware.CooldownMessage(secs))
			return
		}
		middleware.RateLimitedResponse(w, secs, fmt.Sprintf("The %s service is rate limiting requests. Try again in %d seconds.", apiErr.Service, secs))
	case upstream.KindUnauthorized:
		middleware.ErrorResponse(w, apiErr.Status, middleware.CodeReauthenticate, apiErr.Message)
	case upstream.KindClient:
		middleware.ErrorResponse(w, apiErr.Status, middleware.CodeUpstreamRejected, apiErr.Message)
	default:
		b.log(r).WithFields(log.Fields{
			"service": apiErr.Service,
			"status":  apiErr.Status,
			"kind":    apiErr.Kind.String(),
		}).WithError(apiErr).Error("Upstream unavailable")
		middleware.ErrorResponse(w, http.StatusBadGateway, middleware.CodeUpstreamUnavailable, "The upstream service is unavailable, please try again later")
	}
}

// startCooldown blocks the caller's data requests for d.
func (b *base) startCooldown(r *http.Request, d time.Duration) {
	key, ok := middleware.CooldownKey(r)
	if !ok {
		return
	}
	if d <= 0 {
		d = upstream.DefaultRetryAfter
	}
	if err := b.deps.Cooldowns.Start(r.Context(), key, d); err != nil {
		b.log(r).WithError(err).Error("Failed to start cooldown")
		return
	}
	secs := cooldown.Seconds(d)
	b.log(r).WithField("retry_after_seconds", secs).Warn("Upstream rate limit hit, cooldown started")
	events.Emit(b.deps.Events, events.Event{
		Type:        events.CooldownStarted,
		Environment: string(b.env(r)),
		RequestID:   middleware.GetRequestID(r.Context()),
		Data:        map[string]any{"retry_after_seconds": secs},
	})
}

// sendExport renders a file in memory and sends it as an attachment, so a
// failure never leaves a partial download.
func (b *base) sendExport(w http.ResponseWriter, r *http.Request, resource string, render func(io.Writer, export.Format, time.Time) (int, error)) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		b.respondError(w, r, err)
		return
	}
	at := b.deps.Now()

	var buf bytes.Buffer
	rows, err := render(&buf, format, at)
	if err != nil {
		b.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(resource, at)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		b.log(r).WithError(err).Warn("Failed to write export")
	}

	b.recordExport(r, resource, format, rows, at)
}

func (b *base) recordExport(r *http.Request, resource string, format export.Format, rows int, at time.Time) {
	user := ""
	if s, ok := middleware.GetSessionFromContext(r.Context()); ok {
		user = s.User()
	}
	record := models.ExportRecord{
		Resource:    resource,
		Format:      string(format),
		Rows:        rows,
		Environment: string(b.env(r)),
		User:        user,
		RequestID:   middleware.GetRequestID(r.Context()),
		CreatedAt:   at.UTC(),
	}
	if b.deps.Exports != nil {
		// The response is already sent; the audit write must not be tied to the request.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()
		if err := b.deps.Exports.InsertExport(ctx, record); err != nil {
			b.log(r).WithError(err).Error("Failed to record export")
		}
	}
	events.Emit(b.deps.Events, events.Event{
		Type:        events.ExportCreated,
		Environment: record.Environment,
		RequestID:   record.RequestID,
		Data: map[string]any{
			"resource": resource,
			"format":   string(format),
			"rows":     rows,
		},
	})
}

// HealthCheck reports that the gateway is up.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
