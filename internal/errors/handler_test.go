package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remcli/internal/infrastructure"
)

func newTestHandler() *ErrorHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorHandler(logger, false)
}

func TestErrorToProblem_AppErrors(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/data/tables/measured", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing grid maps to 422",
			err:        NewMissingGridError("sub01", "audiometric"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingGrid,
		},
		{
			name:       "empty batch maps to 422",
			err:        NewEmptyBatchError(0),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEmptyBatch,
		},
		{
			name:       "validation maps to 400",
			err:        NewAppValidationError("unknown test type"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "parsing maps to 422",
			err:        NewParsingError("session file is not well-formed XML", errors.New("xml: EOF")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDataCorrupted,
		},
		{
			name:       "storage maps to 500",
			err:        NewStorageError("cannot write report", errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := handler.errorToProblem(tt.err, req)
			require.NotNil(t, problem)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/data/tables/measured", problem.Instance)
		})
	}
}

func TestErrorToProblem_AppErrorContextBecomesExtensions(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/extraction/status", nil)

	problem := handler.errorToProblem(NewMissingGridError("sub07", "12ths"), req)

	assert.Equal(t, "sub07", problem.Extensions["file"])
	assert.Equal(t, "12ths", problem.Extensions["grid"])
	assert.Equal(t, "MISSING_FREQUENCY_GRID", problem.Extensions["error_code"])
}

func TestErrorToProblem_APIError(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/data/tables/bogus", nil)

	problem := handler.errorToProblem(TableNotFoundError("bogus"), req)

	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.Equal(t, TypeTableNotFound, problem.Type)
	assert.Equal(t, "TABLE_NOT_FOUND", problem.Extensions["error_code"])
}

func TestErrorToProblem_APIErrorCodeGroups(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/extraction/run", nil)

	tests := []struct {
		code     string
		status   int
		wantType string
	}{
		{code: "INVALID_JSON", status: http.StatusBadRequest, wantType: TypeValidation},
		{code: "UNSUPPORTED_MEDIA_TYPE", status: http.StatusUnsupportedMediaType, wantType: TypeValidation},
		{code: "PAYLOAD_TOO_LARGE", status: http.StatusRequestEntityTooLarge, wantType: TypePayloadTooLarge},
		{code: "EXTRACTION_RUNNING", status: http.StatusConflict, wantType: TypeExtractionRunning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			problem := handler.errorToProblem(New(tt.status, tt.code, "boom"), req)
			assert.Equal(t, tt.status, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestErrorToProblem_ContextCancellation(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)

	problem := handler.errorToProblem(context.DeadlineExceeded, req)

	assert.Equal(t, http.StatusGatewayTimeout, problem.Status)
	assert.Equal(t, TypeTimeout, problem.Type)
}

func TestErrorToProblem_UntypedFallbacks(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)

	problem := handler.errorToProblem(errors.New("session directory not found"), req)
	assert.Equal(t, http.StatusNotFound, problem.Status)

	problem = handler.errorToProblem(errors.New("something exploded"), req)
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, TypeInternal, problem.Type)
}

func TestHandleError_WritesProblemJSON(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/extraction/run", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, NewEmptyBatchError(4))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeEmptyBatch, body["type"])
	assert.Equal(t, float64(4), body["files_seen"])
}

func TestHandleError_CarriesTraceID(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/data/tables/measured", nil)
	req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-42"))
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, errors.New("something exploded"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "trace-42", body["trace_id"])
}

func TestProblemDetails_MarshalIncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusConflict, TypeExtractionRunning, "Conflict", "already running", "/api/extraction/run").
		WithExtension("operation_id", "abc-123")

	b, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "abc-123", decoded["operation_id"])
	assert.Equal(t, float64(http.StatusConflict), decoded["status"])
}

func TestRouterFallbackHandlers(t *testing.T) {
	handler := newTestHandler()

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
		rec := httptest.NewRecorder()

		handler.NotFound(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, TypeNotFound, body["type"])
		assert.Equal(t, "/api/nope", body["instance"])
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/extraction/run", nil)
		rec := httptest.NewRecorder()

		handler.MethodNotAllowed(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, TypeMethodNotAllowed, body["type"])
		assert.Contains(t, body["detail"], "DELETE")
	})
}
