package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/fleet-tolls/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	SessionContextKey   contextKey = "session"
	RequestIDContextKey contextKey = "request_id"
)

// Session is the caller's upstream credential as seen by the gateway.
type Session struct {
	Token       string
	Fingerprint string
	Claims      *auth.Claims
}

// User returns the best available caller name for logs and audit records.
func (s *Session) User() string {
	if s.Claims != nil {
		if s.Claims.Username != "" {
			return s.Claims.Username
		}
		if s.Claims.Subject != "" {
			return s.Claims.Subject
		}
	}
	if len(s.Fingerprint) > 12 {
		return s.Fingerprint[:12]
	}
	return s.Fingerprint
}

// AuthMiddleware requires a bearer token on gateway data routes.
type AuthMiddleware struct {
	inspector *auth.Inspector
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(inspector *auth.Inspector) *AuthMiddleware {
	return &AuthMiddleware{inspector: inspector}
}

// Authenticate extracts the bearer token and adds the session to the context.
// Signatures are the upstream API's business; expired JWTs are turned away early.
// Public paths attach a session when a usable token is present and never reject.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		public := shouldSkipAuth(r.URL.Path)

		token, err := m.inspector.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			ErrorResponse(w, http.StatusUnauthorized, CodeReauthenticate, "Authorization header required")
			return
		}

		claims, err := m.inspector.Inspect(token)
		if err != nil && !errors.Is(err, auth.ErrNotJWT) {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			msg := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Session expired, please sign in again"
			}
			ErrorResponse(w, http.StatusUnauthorized, CodeReauthenticate, msg)
			return
		}

		session := &Session{
			Token:       token,
			Fingerprint: auth.Fingerprint(token),
			Claims:      claims,
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// GetSessionFromContext extracts the session from request context
func GetSessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*Session)
	return s, ok
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

// shouldSkipAuth determines if authentication should be skipped for a given path
func shouldSkipAuth(path string) bool {
	if path == "/health" || path == "/api/environment" {
		return true
	}
	return strings.HasPrefix(path, "/api/auth/")
}

// RateLimitMiddleware limits inbound requests per caller over a sliding window.
type RateLimitMiddleware struct {
	requests  map[string][]time.Time
	mu        sync.Mutex
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// RateLimit allows maxRequests per window for each caller. Callers are keyed by
// token fingerprint when authenticated and by client IP otherwise.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequests <= 0 || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := rateLimitKey(r)
			now := m.now()
			windowStart := now.Add(-window)

			m.mu.Lock()
			if now.Sub(m.lastSweep) >= window {
				m.sweep(windowStart)
				m.lastSweep = now
			}
			valid := m.requests[key][:0]
			for _, ts := range m.requests[key] {
				if ts.After(windowStart) {
					valid = append(valid, ts)
				}
			}
			if len(valid) >= maxRequests {
				wait := valid[0].Add(window).Sub(now)
				m.requests[key] = valid
				m.mu.Unlock()
				RateLimitedResponse(w, int(math.Ceil(wait.Seconds())), "Rate limit exceeded")
				return
			}
			m.requests[key] = append(valid, now)
			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// sweep forgets callers with no request after windowStart. Timestamps are
// appended in order, so the last one is the newest. m.mu must be held.
func (m *RateLimitMiddleware) sweep(windowStart time.Time) {
	for key, stamps := range m.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(windowStart) {
			delete(m.requests, key)
		}
	}
}

func rateLimitKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 {
			return "token:" + auth.Fingerprint(parts[1])
		}
	}
	return "ip:" + getClientIP(r)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers first
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
