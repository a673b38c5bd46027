package exchange

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tabledit/src/helpers"
	"tabledit/src/models"

	"github.com/xuri/excelize/v2"
)

const totalsLabel = "Totals"

// ReadRows parses an xlsx stream into rows keyed by column id. The first
// sheet's first row is the header; headers are matched against column names
// and column ids, case-insensitively. Rows that fail to parse are reported
// as per-row errors and skipped, they never abort the read.
func ReadRows(r io.Reader, columns []models.TableColumn) ([]*models.Row, []models.ImportRowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet has no sheets")
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet '%s': %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, nil, fmt.Errorf("sheet '%s' is empty", sheets[0])
	}

	colByHeader := make(map[string]*models.TableColumn, len(columns)*2)
	for i := range columns {
		colByHeader[strings.ToLower(columns[i].Name)] = &columns[i]
		colByHeader[strings.ToLower(columns[i].ColumnID)] = &columns[i]
	}

	// header position -> column, unmatched headers are ignored
	mapped := make(map[int]*models.TableColumn)
	for i, header := range cells[0] {
		if col, ok := colByHeader[strings.ToLower(strings.TrimSpace(header))]; ok {
			mapped[i] = col
		}
	}
	if len(mapped) == 0 {
		return nil, nil, fmt.Errorf("no header in sheet '%s' matches a known column", sheets[0])
	}

	var rows []*models.Row
	var rowErrors []models.ImportRowError

	for rowIdx, record := range cells[1:] {
		if isTotalsRow(record) {
			continue
		}

		row := &models.Row{Fields: make(map[string]interface{})}
		failed := false

		for cellIdx, raw := range record {
			col, ok := mapped[cellIdx]
			if !ok {
				continue
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}

			if col.Type.IsNumeric() {
				value, err := parseNumeric(raw)
				if err != nil {
					rowErrors = append(rowErrors, models.ImportRowError{
						RowIndex: rowIdx,
						Message:  fmt.Sprintf("column '%s': %v", col.Name, err),
					})
					failed = true
					break
				}
				row.Fields[col.ColumnID] = value
			} else {
				row.Fields[col.ColumnID] = raw
			}
		}

		if failed {
			continue
		}
		if len(row.Fields) == 0 {
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrors, nil
}

// ReadFile is ReadRows over a file on disk.
func ReadFile(path string, columns []models.TableColumn) ([]*models.Row, []models.ImportRowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file '%s': %w", path, err)
	}
	defer f.Close()
	return ReadRows(f, columns)
}

// WriteRows renders the rows into a new workbook: a header row from the
// column names, one row per data row and a trailing totals row for the
// columns that carry one.
func WriteRows(rows []*models.Row, columns []models.TableColumn, totals map[string]models.TotalResult) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to build header style: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, col.Name); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
		if col.Width > 0 {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sheet, name, name, float64(col.Width)); err != nil {
				return nil, err
			}
		}
	}

	for rowIdx, row := range rows {
		for colIdx, col := range columns {
			if !row.HasField(col.ColumnID) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, row.Field(col.ColumnID)); err != nil {
				return nil, err
			}
		}
	}

	if len(totals) > 0 {
		totalsRow := len(rows) + 2
		labelCell, err := excelize.CoordinatesToCellName(1, totalsRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, labelCell, totalsLabel); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, labelCell, labelCell, headerStyle); err != nil {
			return nil, err
		}
		for colIdx, col := range columns {
			total, ok := totals[col.ColumnID]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, totalsRow)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, total.Value); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

// WriteFile renders the rows and saves the workbook to path.
func WriteFile(path string, rows []*models.Row, columns []models.TableColumn, totals map[string]models.TotalResult) error {
	f, err := WriteRows(rows, columns, totals)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save spreadsheet '%s': %w", path, err)
	}
	return nil
}

// parseNumeric parses a cell into a float64, tolerating surrounding quotes,
// currency symbols and thousands separators.
func parseNumeric(raw string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(helpers.StripQuotes(raw))
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a number", raw)
	}
	return value, nil
}

// isTotalsRow recognizes a totals row written by WriteRows so re-imports
// of an exported file do not pick it up as data.
func isTotalsRow(record []string) bool {
	return len(record) > 0 && strings.TrimSpace(record[0]) == totalsLabel
}
