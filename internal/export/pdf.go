package export

import (
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ubuntu/decorate"
	"github.com/ukydev/fleet-tolls/internal/listing"
)

const (
	pdfRowHeight    = 6.0
	pdfHeaderHeight = 7.0
	pdfFontSize     = 8.0
)

// WritePDF writes a landscape A4 table report. The header row repeats on
// every page.
func WritePDF[T any](w io.Writer, title string, columns []listing.Column[T], rows []T, at time.Time) (err error) {
	if len(rows) == 0 {
		return ErrEmptyDataset
	}
	defer decorate.OnError(&err, "could not write %q report", title)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 12)
	pdf.SetTitle(title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colW := (pageW - left - right) / float64(max(len(columns), 1))

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range columns {
			pdf.CellFormat(colW, pdfHeaderHeight, tr(fit(pdf, col.Header, colW)), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, tr("Generated "+at.Format("2006-01-02 15:04 MST")+" - "+strconv.Itoa(len(rows))+" rows"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for _, row := range rows {
		if pdf.GetY()+pdfRowHeight > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for _, col := range columns {
			pdf.CellFormat(colW, pdfRowHeight, tr(fit(pdf, listing.Text(col.Value(row)), colW)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// fit shortens s with an ellipsis until it fits a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
