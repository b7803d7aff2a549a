package http

import (
	"context"

	"remcli/internal/services"
)

// ExtractionServiceInterface is the slice of the extraction service the
// handler consumes. Tests substitute a stub.
type ExtractionServiceInterface interface {
	Run(ctx context.Context, req services.RunRequest) (string, error)
	Status(ctx context.Context) services.ExtractionState
}
