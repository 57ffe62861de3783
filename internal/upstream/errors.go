package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After.
const DefaultRetryAfter = 60 * time.Second

// Service names the remote system an APIError came from.
const (
	ServiceRydora   = "rydora"
	ServiceOpenData = "opendata"
)

// Kind classifies a failed upstream call by how callers should react to it.
type Kind int

const (
	KindClient Kind = iota
	KindUnauthorized
	KindRateLimited
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// APIError describes a failed call to a remote service.
type APIError struct {
	Service    string
	Status     int
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s error: %s", e.Service, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s returned %d (%s): %s", e.Service, e.Status, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Classify maps an HTTP status to a Kind.
func Classify(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ParseRetryAfter reads a Retry-After value given either as delay seconds or
// as an HTTP date.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return DefaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return DefaultRetryAfter
}

// NewStatusError builds the error for a non-2xx response.
func NewStatusError(service string, status int, header http.Header, body []byte, now time.Time) *APIError {
	e := &APIError{
		Service: service,
		Status:  status,
		Kind:    Classify(status),
		Message: messageFromBody(body),
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Kind == KindRateLimited {
		e.RetryAfter = ParseRetryAfter(header.Get("Retry-After"), now)
	}
	return e
}

func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Title != "":
			return payload.Title
		}
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
