package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "remcli/internal/errors"
	"remcli/internal/services"
)

// MockDataService substitutes the data service behind the handler.
type MockDataService struct {
	mock.Mock
}

func (m *MockDataService) ListTables(ctx context.Context) ([]services.TableInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.TableInfo), args.Error(1)
}

func (m *MockDataService) GetTable(ctx context.Context, kind string) (*services.TableData, error) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TableData), args.Error(1)
}

func newTestDataHandler(svc DataServiceInterface) *DataHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDataHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
}

func TestDataHandler_ListTables(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful list",
			setupMock: func(m *MockDataService) {
				tables := []services.TableInfo{
					{Kind: "measured", Filename: "rem_measured_spl.csv", Exists: true, Rows: 24},
					{Kind: "targets", Filename: "rem_target_spl.csv", Exists: false},
				}
				m.On("ListTables").Return(tables, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":2`,
		},
		{
			name: "includes filenames",
			setupMock: func(m *MockDataService) {
				tables := []services.TableInfo{
					{Kind: "diffs", Filename: "rem_measured_target_diffs.csv", Exists: true, Rows: 40},
				}
				m.On("ListTables").Return(tables, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"rem_measured_target_diffs.csv"`,
		},
		{
			name: "internal error",
			setupMock: func(m *MockDataService) {
				m.On("ListTables").Return(nil, errors.New("disk gone"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDataService)
			tt.setupMock(mockService)
			handler := newTestDataHandler(mockService)

			req := httptest.NewRequest("GET", "/api/data/tables", nil)
			rec := httptest.NewRecorder()

			handler.ListTables(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func measuredFixture() *services.TableData {
	return &services.TableData{
		Kind:    "measured",
		Headers: []string{"filename", "data", "frequency", "left65", "right65"},
		Rows: [][]string{
			{"patient_a.xml", "measured", "250", "52.1", "51.7"},
			{"patient_a.xml", "measured", "500", "58.4", "57.9"},
		},
		RowCount: 2,
	}
}

func TestDataHandler_GetTable(t *testing.T) {
	tests := []struct {
		name           string
		kind           string
		query          string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
		notInBody      string
	}{
		{
			name: "successful get",
			kind: "measured",
			setupMock: func(m *MockDataService) {
				m.On("GetTable", "measured").Return(measuredFixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"patient_a.xml"`,
		},
		{
			name:  "limit caps returned rows",
			kind:  "measured",
			query: "?limit=1",
			setupMock: func(m *MockDataService) {
				m.On("GetTable", "measured").Return(measuredFixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":1`,
			notInBody:      `"500"`,
		},
		{
			name:  "channel narrows wide table columns",
			kind:  "measured",
			query: "?channel=left",
			setupMock: func(m *MockDataService) {
				m.On("GetTable", "measured").Return(measuredFixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"left65"`,
			notInBody:      `"right65"`,
		},
		{
			name:  "channel filters diff rows",
			kind:  "diffs",
			query: "?channel=right",
			setupMock: func(m *MockDataService) {
				table := &services.TableData{
					Kind:    "diffs",
					Headers: []string{"filename", "frequency", "condition", "measured", "target", "measured-target"},
					Rows: [][]string{
						{"patient_a.xml", "1000", "left65", "72.3", "70.0", "2.3"},
						{"patient_a.xml", "1000", "right65", "70.1", "70.0", "0.1"},
					},
					RowCount: 2,
				}
				m.On("GetTable", "diffs").Return(table, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"right65"`,
			notInBody:      `"left65"`,
		},
		{
			name:           "rejects non-integer limit",
			kind:           "measured",
			query:          "?limit=abc",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name:           "rejects unknown channel",
			kind:           "measured",
			query:          "?channel=center",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name: "unknown kind",
			kind: "audiogram",
			setupMock: func(m *MockDataService) {
				m.On("GetTable", "audiogram").Return(nil, services.ErrInvalidTableKind)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name: "table file missing",
			kind: "diffs",
			setupMock: func(m *MockDataService) {
				m.On("GetTable", "diffs").Return(nil, services.ErrTableNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"TABLE_NOT_FOUND"`,
		},
		{
			name: "internal error",
			kind: "targets",
			setupMock: func(m *MockDataService) {
				m.On("GetTable", "targets").Return(nil, errors.New("parse failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDataService)
			tt.setupMock(mockService)
			handler := newTestDataHandler(mockService)

			r := chi.NewRouter()
			r.Mount("/", handler.Routes())

			req := httptest.NewRequest("GET", "/tables/"+tt.kind+tt.query, nil)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			if tt.notInBody != "" {
				assert.NotContains(t, rec.Body.String(), tt.notInBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestFilterTableChannel(t *testing.T) {
	t.Run("keeps discriminator columns", func(t *testing.T) {
		table := measuredFixture()
		filterTableChannel(table, "right")

		assert.Equal(t, []string{"filename", "data", "frequency", "right65"}, table.Headers)
		assert.Equal(t, []string{"patient_a.xml", "measured", "250", "51.7"}, table.Rows[0])
		assert.Equal(t, 2, table.RowCount)
	})

	t.Run("empty channel leaves table intact", func(t *testing.T) {
		table := measuredFixture()
		filterTableChannel(table, "")

		assert.Len(t, table.Headers, 5)
		assert.Equal(t, 2, table.RowCount)
	})
}

func TestDataHandler_GetTableProblemFormat(t *testing.T) {
	mockService := new(MockDataService)
	mockService.On("GetTable", "diffs").Return(nil, services.ErrTableNotFound)
	handler := newTestDataHandler(mockService)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())

	req := httptest.NewRequest("GET", "/tables/diffs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"type":"/errors/data/table-not-found"`)
	assert.Contains(t, body, `"status":404`)
	assert.Contains(t, body, `"title":"Not Found"`)
}
