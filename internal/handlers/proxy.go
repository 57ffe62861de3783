package handlers

import (
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"

	"github.com/ukydev/fleet-tolls/internal/cooldown"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/middleware"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

// ProxyHandler passes every other /api request through to the selected
// upstream backend, including the login endpoints.
type ProxyHandler struct {
	base
	proxy *httputil.ReverseProxy
}

// NewProxyHandler creates a new pass-through proxy
func NewProxyHandler(deps Deps, transport http.RoundTripper) *ProxyHandler {
	h := &ProxyHandler{base: newBase(deps)}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:        h.rewrite,
		Transport:      transport,
		ModifyResponse: h.modifyResponse,
		ErrorHandler:   h.errorHandler,
	}
	return h
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

func (h *ProxyHandler) rewrite(pr *httputil.ProxyRequest) {
	env := h.env(pr.In)
	target, err := h.deps.Resolver.BaseURL(env)
	if err != nil {
		target, _ = h.deps.Resolver.BaseURL(h.deps.Resolver.Default())
	}
	pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, "/api")
	pr.Out.URL.RawPath = ""
	pr.SetURL(target)
	pr.SetXForwarded()
	pr.Out.Header.Set(environment.Header, string(env))
	if id := middleware.GetRequestID(pr.In.Context()); id != "" {
		pr.Out.Header.Set(middleware.RequestIDHeader, id)
	}
}

// modifyResponse starts the caller's cooldown when the upstream answers 429.
func (h *ProxyHandler) modifyResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	d := upstream.ParseRetryAfter(resp.Header.Get("Retry-After"), h.deps.Now())
	resp.Header.Set("Retry-After", strconv.Itoa(cooldown.Seconds(d)))
	h.startCooldown(resp.Request, d)
	return nil
}

func (h *ProxyHandler) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	h.log(r).WithError(err).Error("Proxy request failed")
	middleware.ErrorResponse(w, http.StatusBadGateway, middleware.CodeUpstreamUnavailable, "The upstream service is unavailable, please try again later")
}
