package export

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ubuntu/decorate"
	"github.com/ukydev/fleet-tolls/internal/listing"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// WriteXLSX writes a single-sheet workbook with a bold header row.
func WriteXLSX[T any](w io.Writer, sheet string, columns []listing.Column[T], rows []T) (err error) {
	if len(rows) == 0 {
		return ErrEmptyDataset
	}
	defer decorate.OnError(&err, "could not write %q spreadsheet", sheet)

	f := excelize.NewFile()
	defer f.Close()

	sheet = sheetName(sheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E6E6E6"}},
	})
	if err != nil {
		return err
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
			return err
		}
	}
	if len(columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(columns))
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return err
		}
	}

	for r, row := range rows {
		for c, col := range columns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(col.Value(row))); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

func cellValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time, bool, *string, nil:
		return listing.Text(x)
	default:
		return x
	}
}

func sheetName(s string) string {
	if s == "" {
		return "Export"
	}
	if r := []rune(s); len(r) > maxSheetName {
		return string(r[:maxSheetName])
	}
	return s
}
