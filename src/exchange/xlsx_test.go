package exchange

import (
	"path/filepath"
	"testing"

	"tabledit/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportColumns() []models.TableColumn {
	return []models.TableColumn{
		{ColumnID: "name", Name: "Work item", Type: models.ColumnText, Width: 20},
		{ColumnID: "quantity", Name: "Qty", Type: models.ColumnNumber},
		{ColumnID: "amount", Name: "Amount", Type: models.ColumnCurrency},
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	rows := []*models.Row{
		{Fields: map[string]interface{}{"name": "Excavation", "quantity": 2.0, "amount": 29.0}},
		{Fields: map[string]interface{}{"name": "Concrete", "quantity": 1.5, "amount": 277.5}},
	}
	totals := map[string]models.TotalResult{
		"amount": {Value: 306.5, Formatted: "$306.50", RuleID: "total-amount"},
	}

	f, err := WriteRows(rows, exportColumns(), totals)
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parsed, rowErrors, err := ReadRows(buf, exportColumns())
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	// The totals row is recognized and never comes back as data.
	require.Len(t, parsed, 2)

	assert.Equal(t, "Excavation", parsed[0].Field("name"))
	assert.Equal(t, 2.0, parsed[0].Field("quantity"))
	assert.Equal(t, 277.5, parsed[1].Field("amount"))
}

func TestReadRowsMatchesHeadersByNameOrID(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	// One header uses the display name, the other the column id, one is noise.
	require.NoError(t, f.SetCellValue(sheet, "A1", "Work item"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "quantity"))
	require.NoError(t, f.SetCellValue(sheet, "C1", "Internal notes"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Rebar"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 7))
	require.NoError(t, f.SetCellValue(sheet, "C2", "ignored"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parsed, rowErrors, err := ReadRows(buf, exportColumns())
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Rebar", parsed[0].Field("name"))
	assert.Equal(t, 7.0, parsed[0].Field("quantity"))
	assert.False(t, parsed[0].HasField("Internal notes"))
}

func TestReadRowsStripsQuotedNumbers(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Work item"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Qty"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Gravel"))
	require.NoError(t, f.SetCellValue(sheet, "B2", `"1,200"`))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parsed, rowErrors, err := ReadRows(buf, exportColumns())
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, parsed, 1)
	assert.Equal(t, 1200.0, parsed[0].Field("quantity"))
}

func TestReadRowsReportsBadNumericCells(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Work item"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Qty"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Rebar"))
	require.NoError(t, f.SetCellValue(sheet, "B2", "seven"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Gravel"))
	require.NoError(t, f.SetCellValue(sheet, "B3", "$1,200"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parsed, rowErrors, err := ReadRows(buf, exportColumns())
	require.NoError(t, err)

	// The bad row is reported and skipped; currency punctuation parses.
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 0, rowErrors[0].RowIndex)
	assert.Contains(t, rowErrors[0].Message, "Qty")

	require.Len(t, parsed, 1)
	assert.Equal(t, "Gravel", parsed[0].Field("name"))
	assert.Equal(t, 1200.0, parsed[0].Field("quantity"))
}

func TestReadRowsNoMatchingHeaders(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Completely unrelated"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, _, err = ReadRows(buf, exportColumns())
	assert.Error(t, err)
}

func TestWriteFileAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	rows := []*models.Row{
		{Fields: map[string]interface{}{"name": "Excavation", "quantity": 2.0}},
	}

	require.NoError(t, WriteFile(path, rows, exportColumns(), nil))

	parsed, rowErrors, err := ReadFile(path, exportColumns())
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Excavation", parsed[0].Field("name"))
}

func TestReadFileMissing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"), exportColumns())
	assert.Error(t, err)
}
