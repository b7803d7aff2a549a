package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "remcli/internal/errors"
	"remcli/internal/middleware"
	"remcli/internal/services"
)

// DataHandler serves the exported report tables with RFC 7807 errors.
type DataHandler struct {
	service      DataServiceInterface
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler with RFC 7807 error handling.
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes with proper Chi patterns.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/tables", h.ListTables)
	r.Get("/tables/{kind}", h.GetTable)

	return r
}

// ListTables handles GET /api/data/tables.
func (h *DataHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	h.logger.InfoContext(r.Context(), "listing report tables",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	tables, err := h.service.ListTables(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "table list failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   tables,
		"count":  len(tables),
	})
}

// GetTable handles GET /api/data/tables/{kind}. A channel query parameter
// narrows the table to one ear and limit caps the rows returned; row_count
// inside the table stays the filtered total.
func (h *DataHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	kind := chi.URLParam(r, "kind")

	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 100000, 0)
	if !ok {
		return
	}
	channel, ok := h.query.ValidateEnum(w, r, "channel", []string{"left", "right"}, "")
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching report table",
		slog.String("request_id", reqID),
		slog.String("kind", kind),
	)

	table, err := h.service.GetTable(r.Context(), kind)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "table read failed",
			slog.String("error", err.Error()),
			slog.String("kind", kind),
			slog.String("request_id", reqID),
		)

		switch {
		case errors.Is(err, services.ErrInvalidTableKind):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind",
				fmt.Sprintf("Unknown table kind %q, expected one of: measured, targets, aided-sii, diffs", kind)))
		case errors.Is(err, services.ErrTableNotFound):
			h.errorHandler.HandleError(w, r, apierrors.TableNotFoundError(kind))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	filterTableChannel(table, channel)
	if limit > 0 && limit < len(table.Rows) {
		table.Rows = table.Rows[:limit]
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"count":  len(table.Rows),
	})
}

// filterTableChannel narrows a table to one ear. Wide tables carry the
// channel in their condition column names ("left65"), the diff table in
// its condition values.
func filterTableChannel(t *services.TableData, channel string) {
	if channel == "" {
		t.RowCount = len(t.Rows)
		return
	}

	if idx := columnIndex(t.Headers, "condition"); idx >= 0 {
		kept := make([][]string, 0, len(t.Rows))
		for _, row := range t.Rows {
			if idx < len(row) && strings.HasPrefix(row[idx], channel) {
				kept = append(kept, row)
			}
		}
		t.Rows = kept
		t.RowCount = len(t.Rows)
		return
	}

	keep := make([]int, 0, len(t.Headers))
	for i, h := range t.Headers {
		if isConditionHeader(h) && !strings.HasPrefix(h, channel) {
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) != len(t.Headers) {
		t.Headers = pickColumns(t.Headers, keep)
		for i, row := range t.Rows {
			t.Rows[i] = pickColumns(row, keep)
		}
	}
	t.RowCount = len(t.Rows)
}

// isConditionHeader reports whether a wide-table column is a per-ear
// condition rather than a fixed discriminator column.
func isConditionHeader(h string) bool {
	return strings.HasPrefix(h, "left") || strings.HasPrefix(h, "right")
}

func columnIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func pickColumns(vals []string, idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i < len(vals) {
			out = append(out, vals[i])
		}
	}
	return out
}
