// Package sqlite provides the public API for the SQLite entity backend.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/entitydriver/internal/sqlite"
	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// NewBackend creates a new SQLite backend instance. A nil logger discards
// backend log output.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend(nil)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".entitydriver-db",
//	})
//	defer backend.Detach()
//	driver := entitydriver.New(backend)
func NewBackend(logger *slog.Logger) types.Backend {
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
