// Package services implements the business logic layer between the HTTP
// handlers and the extraction core. Handlers stay thin; services own the
// rules and return domain errors the transport layer translates.
//
// # Available Services
//
//	- ExtractionService: runs the extraction pipeline asynchronously,
//	  tracks run state, and broadcasts lifecycle events to the hub
//	- DataService: serves exported report tables back as JSON
//	- HealthService: liveness, version and system statistics
//
// # Common Pattern
//
// Services take their dependencies by injection and use slog directly:
//
//	type ServiceName struct {
//	    paths  *config.Paths
//	    logger *slog.Logger
//	}
//
//	func (s *ServiceName) Operation(ctx context.Context, input Input) (*Output, error) {
//	    if err := input.Validate(); err != nil {
//	        return nil, fmt.Errorf("validation failed: %w", err)
//	    }
//	    ...
//	}
//
// # Error Handling
//
// Services return the sentinel errors in errors.go (or wrapped domain
// errors); handlers map them onto RFC 7807 responses.
package services
