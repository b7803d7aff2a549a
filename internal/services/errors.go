package services

import "errors"

// Service-level errors, translated to HTTP status codes by the handlers.
var (
	// Extraction errors
	ErrExtractionRunning = errors.New("extraction already running")
	ErrSourceDirInvalid  = errors.New("source directory invalid")

	// Table errors
	ErrInvalidTableKind = errors.New("invalid table kind")
	ErrTableNotFound    = errors.New("table not found")
)
