package db

import (
	"context"

	"github.com/ukydev/fleet-tolls/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExportCollection defines the interface for export audit operations.
type ExportCollection interface {
	InsertExport(ctx context.Context, record models.ExportRecord) error
	FindExports(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (ExportCursor, error)
}

// ExportCursor defines the interface for export cursor operations.
type ExportCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
