package middleware

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tolls/internal/cooldown"
	"github.com/ukydev/fleet-tolls/internal/environment"
)

// Environment resolves the x-environment header into the request context.
func Environment(resolver *environment.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env, err := resolver.FromRequest(r)
			if err != nil {
				ErrorResponse(w, http.StatusBadRequest, CodeUnknownEnvironment, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(environment.WithContext(r.Context(), env)))
		})
	}
}

// CooldownKey returns the cooldown key of an authenticated request.
func CooldownKey(r *http.Request) (string, bool) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		return "", false
	}
	env, ok := environment.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return cooldown.Key(env, session.Fingerprint), true
}

// CooldownMessage is shown to the user while requests are blocked.
func CooldownMessage(seconds int) string {
	return fmt.Sprintf("Too many requests to the Rydora API. Try again in %d seconds.", seconds)
}

// Cooldown answers data requests locally while the caller's cooldown is active.
// The cooldown and environment endpoints stay reachable so the UI can poll and switch.
func Cooldown(store cooldown.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/cooldown" || r.URL.Path == "/api/environment" {
				next.ServeHTTP(w, r)
				return
			}
			key, ok := CooldownKey(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			remaining, err := store.Remaining(r.Context(), key)
			if err != nil {
				// Fail open: the upstream answers 429 again if it still has to.
				log.WithFields(log.Fields{
					"request_id": GetRequestID(r.Context()),
					"error":      err,
				}).Warn("cooldown lookup failed")
				next.ServeHTTP(w, r)
				return
			}
			if secs := cooldown.Seconds(remaining); secs > 0 {
				RateLimitedResponse(w, secs, CooldownMessage(secs))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first one is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
