package core

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"lookupdesk/models"
)

// ParseWorkbook reads the first sheet of an .xlsx workbook. The first row is
// the header; header names are trimmed, blanks become "Column N" and
// repeated names get a ".1", ".2" suffix. Fully blank rows are skipped.
func ParseWorkbook(r io.Reader) (*models.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFormat)
	}
	sheet := sheets[0]

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrInvalidFormat, sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading raw values of sheet %q: %v", ErrInvalidFormat, sheet, err)
	}
	if len(formatted) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no header row", ErrInvalidFormat, sheet)
	}

	columns := headerColumns(formatted[0])
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has an empty header row", ErrInvalidFormat, sheet)
	}

	ds := &models.Dataset{Columns: columns}
	for i := 1; i < len(formatted); i++ {
		var rawRow []string
		if i < len(raw) {
			rawRow = raw[i]
		}
		vals, blank := rowValues(formatted[i], rawRow, len(columns))
		if blank {
			continue
		}
		ds.Rows = append(ds.Rows, models.NewRecord(columns, vals))
	}
	return ds, nil
}

func headerColumns(header []string) []string {
	// Trailing blank header cells carry no column.
	end := len(header)
	for end > 0 && strings.TrimSpace(header[end-1]) == "" {
		end--
	}
	seen := make(map[string]int, end)
	cols := make([]string, 0, end)
	for i := 0; i < end; i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		cols = append(cols, name)
	}
	return cols
}

// rowValues types one row. A cell whose formatted text is a date but whose
// raw value is an Excel serial number is converted exactly rather than
// reparsed from display text.
func rowValues(formatted, raw []string, width int) ([]models.Value, bool) {
	vals := make([]models.Value, width)
	blank := true
	for j := 0; j < width; j++ {
		var text, rawText string
		if j < len(formatted) {
			text = formatted[j]
		}
		if j < len(raw) {
			rawText = raw[j]
		}
		v := models.InferValue(text)
		if v.Kind == models.KindDate && rawText != text {
			if serial, err := strconv.ParseFloat(rawText, 64); err == nil {
				if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
					v = models.DateValue(t, models.DetailDateLayout)
				}
			}
		}
		if !v.IsEmpty() {
			blank = false
		}
		vals[j] = v
	}
	return vals, blank
}
