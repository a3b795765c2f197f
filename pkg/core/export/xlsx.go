// Package export writes statement series to spreadsheets.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reit_valuation/pkg/core/statement"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the series.
const SheetName = "statements"

// Header returns the column order: date, projected flag, tracked metrics,
// remaining numeric fields, then metadata fields, each group sorted.
func Header(s statement.Series) []string {
	cols := []string{"date", "projected"}
	seen := map[string]bool{"date": true, "projected": true}
	present := map[string]bool{}
	for _, f := range s.FieldNames() {
		present[f] = true
	}
	for _, m := range statement.TrackedMetrics {
		if present[m] {
			cols = append(cols, m)
			seen[m] = true
		}
	}
	for _, f := range s.FieldNames() {
		if !seen[f] {
			cols = append(cols, f)
			seen[f] = true
		}
	}
	for _, m := range s.MetaNames() {
		if !seen[m] {
			cols = append(cols, m)
			seen[m] = true
		}
	}
	return cols
}

// WriteXLSX writes one row per period to w.
func WriteXLSX(w io.Writer, s statement.Series) error {
	f, err := build(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, s statement.Series) error {
	f, err := build(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func build(s statement.Series) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := Header(s)
	if err := setRow(f, 1, toAny(header)); err != nil {
		f.Close()
		return nil, err
	}

	for i, r := range s {
		row := make([]interface{}, len(header))
		row[0] = r.Date.Format(statement.DateLayout)
		row[1] = r.Projected
		for j, col := range header[2:] {
			if v, ok := r.Fields[col]; ok {
				row[j+2] = v
			} else if v, ok := r.Meta[col]; ok {
				row[j+2] = v
			}
		}
		if err := setRow(f, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(xs []string) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// DirExporter saves each run's series as <TICKER>_<run id>.xlsx under Dir.
type DirExporter struct {
	Dir string
}

// Export writes the file and returns its path.
func (e DirExporter) Export(ticker string, runID uuid.UUID, s statement.Series) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.xlsx", strings.ToUpper(ticker), runID)
	path := filepath.Join(e.Dir, name)
	if err := SaveXLSX(path, s); err != nil {
		return "", err
	}
	return path, nil
}
