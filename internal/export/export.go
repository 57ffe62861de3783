// Package export renders rows already fetched from the upstream API into
// spreadsheet and PDF files.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ukydev/fleet-tolls/internal/listing"
)

// ErrEmptyDataset is returned instead of producing a file with no rows.
var ErrEmptyDataset = errors.New("no rows to export")

var ErrUnknownFormat = errors.New("unknown export format")

// Format is an output file type.
type Format string

const (
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// ParseFormat accepts xlsx (also excel) and pdf. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return XLSX, nil
	case "pdf":
		return PDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName builds "<resource>-<yyyymmdd>.<ext>".
func (f Format) FileName(resource string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", resource, at.Format("20060102"), f)
}

// Write renders rows in format f.
func Write[T any](w io.Writer, f Format, title string, columns []listing.Column[T], rows []T, at time.Time) error {
	switch f {
	case XLSX:
		return WriteXLSX(w, title, columns, rows)
	case PDF:
		return WritePDF(w, title, columns, rows, at)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
