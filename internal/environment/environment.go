package environment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Header carries the selected backend on every request to the upstream API.
const Header = "x-environment"

// Name identifies an upstream backend.
type Name string

const (
	Development Name = "development"
	Production  Name = "production"
)

var ErrUnknownEnvironment = errors.New("unknown environment")

// Parse accepts the canonical names and their short forms.
func Parse(s string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return Development, nil
	case "production", "prod":
		return Production, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
	}
}

// Resolver maps environments to upstream base URLs.
type Resolver struct {
	urls map[Name]*url.URL
	def  Name
}

// NewResolver builds a resolver. Environments with an empty URL are not available.
func NewResolver(def Name, urls map[Name]string) (*Resolver, error) {
	r := &Resolver{urls: make(map[Name]*url.URL), def: def}
	for name, raw := range urls {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s base URL: %w", name, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid %s base URL %q: scheme and host are required", name, raw)
		}
		r.urls[name] = u
	}
	if _, ok := r.urls[def]; !ok {
		return nil, fmt.Errorf("default environment %q has no base URL", def)
	}
	return r, nil
}

// Default returns the environment used when a request does not select one.
func (r *Resolver) Default() Name {
	return r.def
}

// BaseURL returns a copy of the base URL configured for n.
func (r *Resolver) BaseURL(n Name) (*url.URL, error) {
	u, ok := r.urls[n]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", ErrUnknownEnvironment, n)
	}
	cp := *u
	return &cp, nil
}

// Available lists the configured environments in a stable order.
func (r *Resolver) Available() []Name {
	names := make([]Name, 0, len(r.urls))
	for n := range r.urls {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// FromRequest reads the environment header, falling back to the default.
func (r *Resolver) FromRequest(req *http.Request) (Name, error) {
	raw := req.Header.Get(Header)
	if raw == "" {
		return r.def, nil
	}
	n, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if _, ok := r.urls[n]; !ok {
		return "", fmt.Errorf("%w: %q is not configured", ErrUnknownEnvironment, n)
	}
	return n, nil
}

type contextKey struct{}

// WithContext stores the selected environment in ctx.
func WithContext(ctx context.Context, n Name) context.Context {
	return context.WithValue(ctx, contextKey{}, n)
}

// FromContext returns the environment stored by WithContext.
func FromContext(ctx context.Context) (Name, bool) {
	n, ok := ctx.Value(contextKey{}).(Name)
	return n, ok
}
