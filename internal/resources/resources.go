// Package resources describes the upstream list resources the gateway serves:
// where they live, which filters pass through, and how their columns render.
package resources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ukydev/fleet-tolls/internal/export"
	"github.com/ukydev/fleet-tolls/internal/listing"
	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// Filter maps an inbound query parameter onto the upstream one.
type Filter struct {
	Param    string
	Upstream string
	Kind     FilterKind
}

// FilterKind selects how a filter value is checked and rewritten.
type FilterKind int

const (
	FilterText FilterKind = iota
	FilterPlate
	FilterState
	FilterDate
	FilterPaymentStatus
)

// Definition is a typed upstream list resource.
type Definition[T any] struct {
	Name    string
	Path    string
	Title   string
	Filters []Filter
	Columns []listing.Column[T]
}

// UpstreamQuery translates the inbound filters. Unknown parameters are dropped.
func (d Definition[T]) UpstreamQuery(values url.Values) (url.Values, error) {
	out := url.Values{}
	for _, f := range d.Filters {
		raw := strings.TrimSpace(values.Get(f.Param))
		if raw == "" {
			continue
		}
		v, err := f.normalize(raw)
		if err != nil {
			return nil, err
		}
		out.Set(f.Upstream, v)
	}
	return out, nil
}

func (f Filter) normalize(raw string) (string, error) {
	switch f.Kind {
	case FilterPlate:
		return models.NormalizePlate(raw), nil
	case FilterState:
		if len(raw) != 2 {
			return "", fmt.Errorf("%w: %s must be a two letter state code", ErrInvalidFilter, f.Param)
		}
		return strings.ToUpper(raw), nil
	case FilterDate:
		ts, err := models.ParseTimestamp(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidFilter, f.Param, err)
		}
		return ts.Format("2006-01-02"), nil
	case FilterPaymentStatus:
		s, err := models.ParsePaymentStatus(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidFilter, f.Param, err)
		}
		return string(s), nil
	default:
		return raw, nil
	}
}

// Fetch loads every row matching the inbound filters.
func (d Definition[T]) Fetch(ctx context.Context, c *upstream.Client, call upstream.Call, values url.Values) ([]T, error) {
	q, err := d.UpstreamQuery(values)
	if err != nil {
		return nil, err
	}
	return upstream.GetList[T](ctx, c, call, d.Path, q)
}

// List fetches rows and returns the requested page.
func (d Definition[T]) List(ctx context.Context, c *upstream.Client, call upstream.Call, values url.Values, q listing.Query) (listing.Page[T], error) {
	rows, err := d.Fetch(ctx, c, call, values)
	if err != nil {
		return listing.Page[T]{}, err
	}
	return listing.Apply(rows, d.Columns, q)
}

// ExportTo fetches the filtered, sorted rows and writes them in format f.
func (d Definition[T]) ExportTo(ctx context.Context, c *upstream.Client, call upstream.Call, values url.Values, w io.Writer, f export.Format, at time.Time) (int, error) {
	rows, err := d.Fetch(ctx, c, call, values)
	if err != nil {
		return 0, err
	}
	q, err := listing.ParseQuery(values, 1, 0)
	if err != nil {
		return 0, err
	}
	rows, err = listing.Arrange(rows, d.Columns, q)
	if err != nil {
		return 0, err
	}
	if err := export.Write(w, f, d.Title, d.Columns, rows, at); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Exporter is the untyped view of a Definition used by the export CLI and routes.
type Exporter interface {
	ResourceName() string
	ResourceTitle() string
	ExportTo(ctx context.Context, c *upstream.Client, call upstream.Call, values url.Values, w io.Writer, f export.Format, at time.Time) (int, error)
}

func (d Definition[T]) ResourceName() string  { return d.Name }
func (d Definition[T]) ResourceTitle() string { return d.Title }

var registry = map[string]Exporter{
	Tolls.Name:      Tolls,
	Violations.Name: Violations,
	EZPass.Name:     EZPass,
	Invoices.Name:   Invoices,
	Companies.Name:  Companies,
}

// Lookup returns the exportable resource called name.
func Lookup(name string) (Exporter, error) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownResource, name, strings.Join(Names(), ", "))
	}
	return e, nil
}

// Names lists the exportable resources.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
