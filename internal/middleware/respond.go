package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Error codes returned in the "error" field of JSON error bodies.
const (
	CodeRateLimited         = "rate_limited"
	CodeReauthenticate      = "reauthenticate"
	CodeUpstreamRejected    = "upstream_rejected"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeEmptyDataset        = "empty_dataset"
	CodeInvalidRequest      = "invalid_request"
	CodeValidationFailed    = "validation_failed"
	CodeUnknownEnvironment  = "unknown_environment"
	CodeUnavailable         = "unavailable"
	CodeCancelled           = "request_cancelled"
	CodeInternal            = "internal_error"
)

// ErrorBody is the JSON shape of every error the gateway produces itself.
type ErrorBody struct {
	Error             string            `json:"error"`
	Message           string            `json:"message"`
	Fields            map[string]string `json:"fields,omitempty"`
	RetryAfterSeconds int               `json:"retry_after_seconds,omitempty"`
}

// JSONResponse writes v as JSON with the given status.
func JSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// ErrorResponse writes a JSON error body.
func ErrorResponse(w http.ResponseWriter, status int, code, message string) {
	JSONResponse(w, status, ErrorBody{Error: code, Message: message})
}

// RateLimitedResponse answers 429 with a Retry-After header in whole seconds.
func RateLimitedResponse(w http.ResponseWriter, seconds int, message string) {
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	JSONResponse(w, http.StatusTooManyRequests, ErrorBody{
		Error:             CodeRateLimited,
		Message:           message,
		RetryAfterSeconds: seconds,
	})
}
