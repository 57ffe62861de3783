// Package listing filters, sorts and pages rows fetched from the upstream API.
package listing

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownColumn = errors.New("unknown sort column")
	ErrInvalidQuery  = errors.New("invalid list query")
)

// Column describes one field of a row for searching, sorting and export.
type Column[T any] struct {
	Key    string
	Header string
	Value  func(T) any
}

// Query is the client's view over a list.
type Query struct {
	Search   string
	SortBy   string
	Desc     bool
	Page     int
	PageSize int
}

// Page is one page of rows plus the totals needed to render a pager.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ParseQuery reads q, sort, order, page and page_size.
func ParseQuery(values url.Values, defaultSize, maxSize int) (Query, error) {
	q := Query{
		Search:   strings.TrimSpace(values.Get("q")),
		SortBy:   values.Get("sort"),
		Page:     1,
		PageSize: defaultSize,
	}

	switch strings.ToLower(values.Get("order")) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return Query{}, fmt.Errorf("%w: order must be asc or desc", ErrInvalidQuery)
	}

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Query{}, fmt.Errorf("%w: page must be a positive integer", ErrInvalidQuery)
		}
		q.Page = n
	}
	if v := values.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Query{}, fmt.Errorf("%w: page_size must be a positive integer", ErrInvalidQuery)
		}
		q.PageSize = n
	}
	if maxSize > 0 && q.PageSize > maxSize {
		q.PageSize = maxSize
	}
	return q, nil
}

// Arrange filters rows by q.Search and sorts them by q.SortBy. The input is
// not modified.
func Arrange[T any](rows []T, columns []Column[T], q Query) ([]T, error) {
	out := make([]T, 0, len(rows))
	needle := strings.ToLower(q.Search)
	for _, row := range rows {
		if needle == "" || matches(row, columns, needle) {
			out = append(out, row)
		}
	}

	if q.SortBy == "" {
		return out, nil
	}
	col, ok := find(columns, q.SortBy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, q.SortBy)
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(col.Value(out[i]), col.Value(out[j]))
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// Paginate slices rows into the requested page. A page past the end is empty.
func Paginate[T any](rows []T, page, size int) Page[T] {
	if size < 1 {
		size = len(rows)
		if size == 0 {
			size = 1
		}
	}
	if page < 1 {
		page = 1
	}
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		Total:      len(rows),
		TotalPages: (len(rows) + size - 1) / size,
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return p
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	p.Items = append(p.Items, rows[start:end]...)
	return p
}

// Apply arranges rows and returns the requested page.
func Apply[T any](rows []T, columns []Column[T], q Query) (Page[T], error) {
	arranged, err := Arrange(rows, columns, q)
	if err != nil {
		return Page[T]{}, err
	}
	return Paginate(arranged, q.Page, q.PageSize), nil
}

// Text renders a column value the way tables and reports show it.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case decimal.Decimal:
		return x.StringFixed(2)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02 15:04")
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func matches[T any](row T, columns []Column[T], needle string) bool {
	for _, col := range columns {
		if strings.Contains(strings.ToLower(Text(col.Value(row))), needle) {
			return true
		}
	}
	return false
}

func find[T any](columns []Column[T], key string) (Column[T], bool) {
	for _, col := range columns {
		if strings.EqualFold(col.Key, key) {
			return col, true
		}
	}
	return Column[T]{}, false
}

func compare(a, b any) int {
	switch x := a.(type) {
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case int:
		if y, ok := b.(int); ok {
			return x - y
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(strings.ToLower(Text(a)), strings.ToLower(Text(b)))
}
