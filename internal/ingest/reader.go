package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadSheet returns the cell grid of the first usable worksheet. A sheet
// is usable when it has at least two rows and two columns; if the first
// one is not, the others are tried in order and the first sheet is
// returned as-is when none qualifies.
func ReadSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	first, err := readRows(f, sheets[0])
	if err != nil {
		return nil, err
	}
	if usable(first) {
		return first, nil
	}

	for _, sheet := range sheets[1:] {
		rows, err := readRows(f, sheet)
		if err != nil {
			continue
		}
		if usable(rows) {
			return rows, nil
		}
	}
	return first, nil
}

func readRows(f *excelize.File, sheet string) ([][]string, error) {
	// Raw values keep numbers unformatted so thousands separators from the
	// cell style do not leak into CleanNumeric.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func usable(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width >= 2
}
