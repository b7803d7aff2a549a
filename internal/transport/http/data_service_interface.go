package http

import (
	"context"

	"remcli/internal/services"
)

// DataServiceInterface is the slice of the data service the handler
// consumes. Tests substitute a stub.
type DataServiceInterface interface {
	ListTables(ctx context.Context) ([]services.TableInfo, error)
	GetTable(ctx context.Context, kind string) (*services.TableData, error)
}
