package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ukydev/fleet-tolls/internal/cooldown"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/events"
	"github.com/ukydev/fleet-tolls/internal/middleware"
)

// LoginPath is where the UI sends the user after the session is reset.
const LoginPath = "/login"

// SessionHandler serves environment selection and cooldown state.
type SessionHandler struct {
	base
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(deps Deps) *SessionHandler {
	return &SessionHandler{base: newBase(deps)}
}

type environmentState struct {
	Environment environment.Name   `json:"environment"`
	Default     environment.Name   `json:"default"`
	Available   []environment.Name `json:"available"`
}

type switchRequest struct {
	Environment string `json:"environment"`
}

type switchResponse struct {
	Environment  environment.Name `json:"environment"`
	TokenCleared bool             `json:"token_cleared"`
	Redirect     string           `json:"redirect"`
}

type cooldownState struct {
	Active            bool `json:"active"`
	RetryAfterSeconds int  `json:"retry_after_seconds"`
}

// GetEnvironment handles GET /api/environment.
func (h *SessionHandler) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, environmentState{
		Environment: h.env(r),
		Default:     h.deps.Resolver.Default(),
		Available:   h.deps.Resolver.Available(),
	})
}

// SwitchEnvironment handles POST /api/environment. Tokens are only valid for
// the backend that issued them, so the caller's gateway state is dropped and
// the UI is sent back to the login page.
func (h *SessionHandler) SwitchEnvironment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "Failed to read request body")
		return
	}
	var req switchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "Invalid JSON")
		return
	}
	target, err := environment.Parse(req.Environment)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.deps.Resolver.BaseURL(target); err != nil {
		h.respondError(w, r, err)
		return
	}

	if s, ok := middleware.GetSessionFromContext(r.Context()); ok {
		for _, env := range h.deps.Resolver.Available() {
			if err := h.deps.Cooldowns.Clear(r.Context(), cooldown.Key(env, s.Fingerprint)); err != nil {
				h.log(r).WithError(err).Warn("Failed to clear cooldown")
			}
		}
	}

	previous := h.env(r)
	h.log(r).WithField("target", target).Info("Environment switched")
	events.Emit(h.deps.Events, events.Event{
		Type:        events.EnvironmentSwitched,
		Environment: string(target),
		RequestID:   middleware.GetRequestID(r.Context()),
		Data:        map[string]any{"from": string(previous)},
	})

	middleware.JSONResponse(w, http.StatusOK, switchResponse{
		Environment:  target,
		TokenCleared: true,
		Redirect:     LoginPath,
	})
}

// Cooldown handles GET /api/cooldown.
func (h *SessionHandler) Cooldown(w http.ResponseWriter, r *http.Request) {
	key, ok := middleware.CooldownKey(r)
	if !ok {
		middleware.JSONResponse(w, http.StatusOK, cooldownState{})
		return
	}
	remaining, err := h.deps.Cooldowns.Remaining(r.Context(), key)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	secs := cooldown.Seconds(remaining)
	middleware.JSONResponse(w, http.StatusOK, cooldownState{Active: secs > 0, RetryAfterSeconds: secs})
}
