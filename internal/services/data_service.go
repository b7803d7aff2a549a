package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remcli/internal/config"
	"remcli/internal/infrastructure"
)

// TableInfo describes one exported report table.
type TableInfo struct {
	Kind      string    `json:"kind"`
	Filename  string    `json:"filename"`
	Exists    bool      `json:"exists"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Rows      int       `json:"rows"`
	Modified  time.Time `json:"modified,omitempty"`
}

// TableData is one report table re-read from its exported CSV.
type TableData struct {
	Kind     string     `json:"kind"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
	RowCount int        `json:"row_count"`
}

// DataService serves the exported report tables back over the API.
type DataService struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewDataService creates a new data service.
func NewDataService(paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		paths:  paths,
		logger: infrastructure.WithComponent(logger, "data_service"),
	}
}

// tableKinds fixes the listing order of the API. The API vocabulary is
// hyphenated (aided-sii) even though the files use underscores.
var tableKinds = []string{"measured", "targets", "aided-sii", "diffs"}

// tablePath maps an API kind onto its report file.
func (ds *DataService) tablePath(kind string) (string, bool) {
	switch kind {
	case "measured":
		return ds.paths.GetMeasuredCSVPath(), true
	case "targets":
		return ds.paths.GetTargetsCSVPath(), true
	case "aided-sii":
		return ds.paths.GetAidedSIICSVPath(), true
	case "diffs":
		return ds.paths.GetDiffsCSVPath(), true
	default:
		return "", false
	}
}

// ListTables describes the four report tables, present or not.
func (ds *DataService) ListTables(ctx context.Context) ([]TableInfo, error) {
	infos := make([]TableInfo, 0, len(tableKinds))
	for _, kind := range tableKinds {
		path, _ := ds.tablePath(kind)
		info := TableInfo{
			Kind:     kind,
			Filename: filepath.Base(path),
		}
		if st, err := os.Stat(path); err == nil {
			info.Exists = true
			info.SizeBytes = st.Size()
			info.Modified = st.ModTime()
			if rows, err := ds.countDataRows(path); err == nil {
				info.Rows = rows
			}
		}
		infos = append(infos, info)
	}

	ds.logger.DebugContext(ctx, "listed report tables",
		slog.Int("tables", len(infos)))
	return infos, nil
}

// GetTable reads one report table back from its exported CSV.
func (ds *DataService) GetTable(ctx context.Context, kind string) (*TableData, error) {
	path, ok := ds.tablePath(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableKind, kind)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, kind)
		}
		return nil, fmt.Errorf("open table %s: %w", kind, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", kind, err)
	}
	if len(records) == 0 {
		return &TableData{Kind: kind, Headers: []string{}, Rows: [][]string{}}, nil
	}

	headers := records[0]
	if len(headers) > 0 {
		// Exported files may start with a UTF-8 BOM
		headers[0] = strings.TrimPrefix(headers[0], "﻿")
	}

	rows := records[1:]
	if rows == nil {
		rows = [][]string{}
	}

	ds.logger.DebugContext(ctx, "table read",
		slog.String("kind", kind),
		slog.Int("rows", len(rows)))

	return &TableData{
		Kind:     kind,
		Headers:  headers,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

// countDataRows counts data rows, header excluded.
func (ds *DataService) countDataRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	count := -1
	for {
		if _, err := r.Read(); err != nil {
			break
		}
		count++
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}
