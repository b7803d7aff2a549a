package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "remcli/internal/errors"
	"remcli/internal/infrastructure"
	"remcli/pkg/contracts/domain"
)

// Sheet names of the combined workbook.
const (
	sheetMeasured = "Measured"
	sheetTargets  = "Targets"
	sheetAidedSII = "Aided SII"
	sheetDiffs    = "Diffs"
)

// ExportWorkbook writes all four tables as sheets of a single xlsx file and
// returns its path. Numeric cells are written as numbers so spreadsheet
// formulas apply to them directly; absent cells stay empty. The file is
// saved beside its final path and renamed into place once complete, so a
// reader never opens a partially written workbook.
func (e *ReportExporter) ExportWorkbook(ctx context.Context, tables ResultTables) (string, error) {
	start := time.Now()
	path := e.paths.GetWorkbookPath()

	if tables.Measured == nil {
		tables.Measured = domain.NewWideTable(domain.TableMeasured)
	}
	if tables.Targets == nil {
		tables.Targets = domain.NewWideTable(domain.TableTarget)
	}
	if tables.AidedSII == nil {
		tables.AidedSII = domain.NewWideTable(domain.TableAidedSII)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetMeasured); err != nil {
		return "", fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{sheetTargets, sheetAidedSII, sheetDiffs} {
		if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]interface{}
	}{
		{sheetMeasured, wideHeader(tables.Measured), wideSheetRows(tables.Measured)},
		{sheetTargets, wideHeader(tables.Targets), wideSheetRows(tables.Targets)},
		{sheetAidedSII, wideHeader(tables.AidedSII), wideSheetRows(tables.AidedSII)},
		{sheetDiffs, diffHeader, diffSheetRows(tables.Diffs)},
	}

	var rows int
	for _, s := range sheets {
		if err := writeSheet(f, s.name, headerStyle, s.header, s.rows); err != nil {
			return "", fmt.Errorf("write sheet %s: %w", s.name, err)
		}
		rows += len(s.rows)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("render workbook: %w", err)
	}
	tmp := path + ".tmp"
	if err := e.manager.WriteFile(tmp, buf.Bytes()); err != nil {
		return "", apperrors.NewStorageError("failed to save workbook", err)
	}
	if err := e.manager.MoveFile(tmp, path); err != nil {
		return "", apperrors.NewStorageError("failed to publish workbook", err)
	}

	infrastructure.RecordReportWrite(ctx, e.opts.Metrics, "workbook", int64(rows), time.Since(start))
	slog.Info("report written",
		slog.String("report", "workbook"),
		slog.String("path", path),
		slog.Int("rows", rows))
	return path, nil
}

// writeSheet renders one sheet: a bold header row, the data rows, and column
// widths sized to the longest cell seen in each column.
func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]interface{}) error {
	widths := make([]float64, len(header))

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("name header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header cell %s: %w", cell, err)
		}
		widths[i] = cellWidth(h)
	}

	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return fmt.Errorf("name header range: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style header row: %w", err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			if v == nil || c >= len(widths) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("name cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
			if w := cellWidth(fmt.Sprint(v)); w > widths[c] {
				widths[c] = w
			}
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("name column: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("size column %s: %w", col, err)
		}
	}
	return nil
}

// wideSheetRows renders a wide table's rows with typed cell values.
func wideSheetRows(t *domain.WideTable) [][]interface{} {
	rows := make([][]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		vals := []interface{}{row.Filename, string(t.Kind)}
		if t.Kind.HasFrequency() {
			vals = append(vals, row.Frequency)
		}
		for _, c := range t.Conditions {
			vals = append(vals, datumValue(row.Cell(c)))
		}
		rows = append(rows, vals)
	}
	return rows
}

// diffSheetRows renders diff rows with typed cell values.
func diffSheetRows(rows []domain.DiffRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, []interface{}{
			r.Filename,
			r.Frequency,
			string(r.Condition),
			datumValue(r.Measured),
			datumValue(r.Target),
			datumValue(r.Diff),
		})
	}
	return out
}

// datumValue converts a datum to a cell value, nil for absent so the cell
// is never created.
func datumValue(d domain.Datum) interface{} {
	if !d.Present {
		return nil
	}
	return d.Value
}

// cellWidth approximates a display width for cell content.
func cellWidth(s string) float64 {
	return float64(len(s)) + 2
}
