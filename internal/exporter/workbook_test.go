package exporter

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportWorkbook(t *testing.T) {
	exporter, paths := newTestExporter(t, ExportOptions{Workbook: true})

	path, err := exporter.ExportWorkbook(context.Background(), sampleResultTables())
	require.NoError(t, err)
	assert.Equal(t, paths.WorkbookFile, path)

	// The intermediate file is renamed away once the save completes.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetMeasured, sheetTargets, sheetAidedSII, sheetDiffs}, f.GetSheetList())

	rows, err := f.GetRows(sheetMeasured)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"filename", "data", "frequency", "left65", "right65"}, rows[0])
	assert.Equal(t, []string{"patient_a", "measured", "1000", "65.5"}, rows[1],
		"trailing absent cell is never created")
	assert.Equal(t, []string{"patient_a", "measured", "2000", "70", "72.25"}, rows[2])

	rows, err = f.GetRows(sheetAidedSII)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"filename", "data", "left65"}, rows[0])
	assert.Equal(t, []string{"patient_a", "aided_sii", "0.81"}, rows[1])

	rows, err = f.GetRows(sheetDiffs)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"filename", "frequency", "condition", "measured", "target", "measured-target"}, rows[0])
	assert.Equal(t, []string{"patient_a", "1000", "left65", "65.5", "61.2", "4.3"}, rows[1])
	assert.Equal(t, []string{"patient_a", "2000", "left65", "70"}, rows[2])
}

func TestExportWorkbookHeaderStyle(t *testing.T) {
	exporter, _ := newTestExporter(t, ExportOptions{Workbook: true})

	path, err := exporter.ExportWorkbook(context.Background(), sampleResultTables())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		styleID, err := f.GetCellStyle(sheet, "A1")
		require.NoError(t, err)
		style, err := f.GetStyle(styleID)
		require.NoError(t, err)
		require.NotNil(t, style.Font, "header on %s should carry a font style", sheet)
		assert.True(t, style.Font.Bold, "header on %s should be bold", sheet)
	}
}

func TestExportWorkbookColumnWidths(t *testing.T) {
	exporter, _ := newTestExporter(t, ExportOptions{Workbook: true})

	path, err := exporter.ExportWorkbook(context.Background(), sampleResultTables())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Column A holds "patient_a" (9 runes), so the computed width is 11.
	width, err := f.GetColWidth(sheetMeasured, "A")
	require.NoError(t, err)
	assert.InDelta(t, 11, width, 0.1)
}

func TestExportWorkbookEmptyTables(t *testing.T) {
	exporter, _ := newTestExporter(t, ExportOptions{Workbook: true})

	path, err := exporter.ExportWorkbook(context.Background(), ResultTables{})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetMeasured)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header row survives an empty run")
	assert.Equal(t, []string{"filename", "data", "frequency"}, rows[0])
}
