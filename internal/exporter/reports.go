package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"remcli/internal/config"
	apperrors "remcli/internal/errors"
	"remcli/internal/files"
	"remcli/internal/infrastructure"
	"remcli/pkg/contracts/domain"
)

// ResultTables bundles the four report tables produced by one extraction run.
type ResultTables struct {
	Measured *domain.WideTable
	Targets  *domain.WideTable
	AidedSII *domain.WideTable
	Diffs    []domain.DiffRow
}

// ExportOptions configures report generation.
type ExportOptions struct {
	// BOM prefixes each CSV with a UTF-8 byte-order mark so Excel opens
	// the files without an import wizard.
	BOM bool
	// Workbook additionally writes the four tables as sheets of one
	// xlsx file.
	Workbook bool
	// Metrics, when set, records rows written per report.
	Metrics *infrastructure.BusinessMetrics
}

// ReportExporter writes extraction result tables under the reports
// directory using the fixed report file names.
type ReportExporter struct {
	csvWriter *CSVWriter
	manager   *files.Manager
	paths     *config.Paths
	opts      ExportOptions
}

// NewReportExporter creates a report exporter rooted at the given paths.
func NewReportExporter(paths *config.Paths, opts ExportOptions) *ReportExporter {
	return &ReportExporter{
		csvWriter: NewCSVWriter(paths),
		manager:   files.NewManager(paths),
		paths:     paths,
		opts:      opts,
	}
}

// ExportAll writes every report for one run and returns the paths written,
// CSVs first and the workbook last when enabled.
func (e *ReportExporter) ExportAll(ctx context.Context, tables ResultTables) ([]string, error) {
	var written []string

	path, err := e.ExportMeasured(ctx, tables.Measured)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	path, err = e.ExportTargets(ctx, tables.Targets)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	path, err = e.ExportAidedSII(ctx, tables.AidedSII)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	path, err = e.ExportDiffs(ctx, tables.Diffs)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	if e.opts.Workbook {
		path, err = e.ExportWorkbook(ctx, tables)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// ExportMeasured writes the measured SPL wide table.
func (e *ReportExporter) ExportMeasured(ctx context.Context, t *domain.WideTable) (string, error) {
	if t == nil {
		t = domain.NewWideTable(domain.TableMeasured)
	}
	return e.exportWide(ctx, "measured", e.paths.GetMeasuredCSVPath(), t)
}

// ExportTargets writes the target SPL wide table.
func (e *ReportExporter) ExportTargets(ctx context.Context, t *domain.WideTable) (string, error) {
	if t == nil {
		t = domain.NewWideTable(domain.TableTarget)
	}
	return e.exportWide(ctx, "targets", e.paths.GetTargetsCSVPath(), t)
}

// ExportAidedSII writes the aided SII scalar table.
func (e *ReportExporter) ExportAidedSII(ctx context.Context, t *domain.WideTable) (string, error) {
	if t == nil {
		t = domain.NewWideTable(domain.TableAidedSII)
	}
	return e.exportWide(ctx, "aided_sii", e.paths.GetAidedSIICSVPath(), t)
}

// ExportDiffs writes the long measured-versus-target diff table.
func (e *ReportExporter) ExportDiffs(ctx context.Context, rows []domain.DiffRow) (string, error) {
	start := time.Now()
	path := e.paths.GetDiffsCSVPath()
	records := diffRecords(rows)

	if err := e.csvWriter.WriteCSV(path, WriteOptions{
		Headers:   diffHeader,
		Records:   records,
		BOMPrefix: e.opts.BOM,
	}); err != nil {
		return "", apperrors.NewStorageError("failed to write diffs report", err)
	}

	infrastructure.RecordReportWrite(ctx, e.opts.Metrics, "diffs", int64(len(records)), time.Since(start))
	slog.Info("report written",
		slog.String("report", "diffs"),
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return path, nil
}

func (e *ReportExporter) exportWide(ctx context.Context, report, path string, t *domain.WideTable) (string, error) {
	start := time.Now()
	records := wideRecords(t)

	if err := e.csvWriter.WriteCSV(path, WriteOptions{
		Headers:   wideHeader(t),
		Records:   records,
		BOMPrefix: e.opts.BOM,
	}); err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to write %s report", report), err)
	}

	infrastructure.RecordReportWrite(ctx, e.opts.Metrics, report, int64(len(records)), time.Since(start))
	slog.Info("report written",
		slog.String("report", report),
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return path, nil
}

// diffHeader is the fixed column set of the diff report.
var diffHeader = []string{"filename", "frequency", "condition", "measured", "target", "measured-target"}

// wideHeader builds the header row for a wide table: the file and data
// discriminators, the frequency axis where the kind has one, then one
// column per condition in table order.
func wideHeader(t *domain.WideTable) []string {
	header := []string{"filename", "data"}
	if t.Kind.HasFrequency() {
		header = append(header, "frequency")
	}
	for _, c := range t.Conditions {
		header = append(header, string(c))
	}
	return header
}

// wideRecords renders a wide table's rows in table order.
func wideRecords(t *domain.WideTable) [][]string {
	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := []string{row.Filename, string(t.Kind)}
		if t.Kind.HasFrequency() {
			record = append(record, formatInt(row.Frequency))
		}
		for _, c := range t.Conditions {
			record = append(record, formatDatum(row.Cell(c)))
		}
		records = append(records, record)
	}
	return records
}

// diffRecords renders diff rows in their joined order.
func diffRecords(rows []domain.DiffRow) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Filename,
			formatInt(r.Frequency),
			string(r.Condition),
			formatDatum(r.Measured),
			formatDatum(r.Target),
			formatDatum(r.Diff),
		})
	}
	return records
}
