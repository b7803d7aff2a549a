package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is a transport-level error carrying the HTTP status and the
// stable machine-readable code clients switch on. The error handler
// turns it into an RFC 7807 problem body.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer so an APIError can be passed to
// chi/render directly.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError from a status, code and message.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails attaches a free-form details payload to the error.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// ErrExtractionRunning rejects a run request while another run holds the
// single extraction slot.
var ErrExtractionRunning = New(http.StatusConflict, "EXTRACTION_RUNNING", "An extraction run is already in progress")

// ValidationError is one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors groups per-field failures for a single request.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ErrValidation builds a VALIDATION_FAILED error for one field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "One or more request fields failed validation", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors builds a VALIDATION_FAILED error covering several
// fields at once.
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"One or more request fields failed validation",
		ValidationErrors{Errors: errors},
	)
}

// InvalidRequestWithError wraps a body decode failure.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Request body could not be decoded", err.Error())
}

// TableNotFoundError reports a report table whose CSV has not been
// produced yet.
func TableNotFoundError(kind string) *APIError {
	return NewWithDetails(http.StatusNotFound, "TABLE_NOT_FOUND", fmt.Sprintf("report table %q not found", kind), kind)
}
