package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline failures and extraction notices.
type ErrorType string

const (
	// Extraction taxonomy. MissingGrid is fatal for the file it names,
	// EmptyBatch is fatal for the whole run; the rest mark data that is
	// absent but never abort sibling extractions.
	ErrTypeMissingGrid   ErrorType = "MISSING_FREQUENCY_GRID"
	ErrTypeMissingCurve  ErrorType = "MISSING_CURVE_NODE"
	ErrTypeUnresolvedKey ErrorType = "UNRESOLVED_CORRELATION_KEY"
	ErrTypeNonNumeric    ErrorType = "NON_NUMERIC_TOKEN"
	ErrTypeEmptyBatch    ErrorType = "EMPTY_BATCH_RESULT"

	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
)

// AppError is the error currency of the extraction pipeline. Fatal
// failures wrap their cause in one; per-file notices are collected as
// slices of them and never abort sibling extractions.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error prefixes the message with the type tag so log lines and CLI
// output stay greppable by failure class.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair and returns the receiver so
// constructors can chain it.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError builds an error of the given type. Most callers want one
// of the typed constructors below instead.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewMissingGridError reports that a session file lacks one of its two
// frequency grids. Extraction of that file cannot proceed.
func NewMissingGridError(file, grid string) *AppError {
	return NewAppError(ErrTypeMissingGrid, fmt.Sprintf("frequency grid %q not found", grid), nil).
		WithContext("file", file).
		WithContext("grid", grid)
}

// NewMissingCurveError reports an absent measured, target, or metric node for
// one condition. The condition is omitted from the output, not zero-filled.
func NewMissingCurveError(file, node string, condition string) *AppError {
	return NewAppError(ErrTypeMissingCurve, fmt.Sprintf("no %s data for %s", node, condition), nil).
		WithContext("file", file).
		WithContext("condition", condition)
}

// NewUnresolvedKeyError reports that no internal curve slot matched a
// measured curve, so its target and aided metric cannot be located.
func NewUnresolvedKeyError(file string, condition string) *AppError {
	return NewAppError(ErrTypeUnresolvedKey, fmt.Sprintf("no internal curve matches %s", condition), nil).
		WithContext("file", file).
		WithContext("condition", condition)
}

// NewNonNumericError reports a token that failed numeric coercion and was
// treated as absent.
func NewNonNumericError(file, field, token string) *AppError {
	return NewAppError(ErrTypeNonNumeric, fmt.Sprintf("non-numeric token %q in %s", token, field), nil).
		WithContext("file", file).
		WithContext("field", field)
}

// NewEmptyBatchError reports a batch in which no file yielded measured data.
func NewEmptyBatchError(filesSeen int) *AppError {
	return NewAppError(ErrTypeEmptyBatch, "no session file yielded measured data", nil).
		WithContext("files_seen", filesSeen)
}

// NewParsingError wraps a session file decode failure.
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError wraps a report or workbook write failure.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError reports invalid caller input, such as an
// unknown test type.
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// typeOf returns the AppError type carried by err, or an empty string when
// err is not an AppError.
func typeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsMissingGrid reports whether err is a fatal per-file grid failure.
func IsMissingGrid(err error) bool {
	return typeOf(err) == ErrTypeMissingGrid
}

// IsEmptyBatch reports whether err is the batch-level empty result.
func IsEmptyBatch(err error) bool {
	return typeOf(err) == ErrTypeEmptyBatch
}
