// Package http implements the HTTP handlers for the REM report service.
// It is a thin layer between the Chi router and the service packages:
// handlers parse and validate requests, call a service, map service errors
// onto RFC 7807 problem responses, and render JSON.
//
// # Handler Structure
//
// Each handler owns one resource and follows the same pattern:
//
//	type DataHandler struct {
//	    service      DataServiceInterface
//	    logger       *slog.Logger
//	    errorHandler *apierrors.ErrorHandler
//	}
//
// Service dependencies are declared as interfaces in *_service_interface.go
// files so tests can substitute stubs. Routes() returns a chi.Router that the
// application mounts under /api.
//
// # Error Handling
//
// Service sentinel errors are translated with errors.Is into *apierrors.APIError
// values and written by the shared ErrorHandler as RFC 7807 problem documents:
//
//	{
//	    "type": "/errors/data/table-not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "report table \"diffs\" not found",
//	    "error_code": "TABLE_NOT_FOUND"
//	}
//
// Unmapped errors fall through to the generic 500 handler.
package http
