// Package sqlite implements the SQLite host backend for the entity driver.
// JSONL files in DataDir are the source of truth; SQLite is rebuilt from them
// on every Attach and serves as the query engine.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

//go:embed entity_types.yaml
var defaultEntityTypes []byte

// dbFileName is the SQLite cache file created inside DataDir.
const dbFileName = "entities.db"

// Backend implements types.Backend using SQLite as the query engine and JSONL
// files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	defs     map[string]*types.EntityTypeDefinition
	storages map[string]*entityStorage
	logger   *slog.Logger
}

var _ types.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for attach and persistence events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		defs:     make(map[string]*types.EntityTypeDefinition),
		storages: make(map[string]*entityStorage),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Storage returns the Storage for the given entity type.
// Returns ErrEntityTypeNotFound if the type is not defined.
// Returns ErrBackendDetached if the backend is not attached.
func (b *Backend) Storage(entityTypeID string) (types.Storage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	s, ok := b.storages[entityTypeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrEntityTypeNotFound, entityTypeID)
	}
	return s, nil
}

// Definitions lists the attached entity types ordered by id. It returns nil
// while detached.
func (b *Backend) Definitions() []types.EntityTypeDefinition {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil
	}

	out := make([]types.EntityTypeDefinition, 0, len(b.defs))
	for _, def := range b.defs {
		out = append(out, *def)
	}
	slices.SortFunc(out, func(a, b types.EntityTypeDefinition) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, loads the entity type schema,
// initializes the SQLite schema and loads the JSONL files.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	schema, err := loadSchema(config.SchemaFile)
	if err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache; JSONL is authoritative, so start fresh.
	dbPath := filepath.Join(config.DataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return err
	}

	if err := initJSONLFiles(config.DataDir); err != nil {
		db.Close()
		return err
	}

	loaded, err := loadAllJSONL(db, config.DataDir)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.defs = make(map[string]*types.EntityTypeDefinition, len(schema.EntityTypes))
	b.storages = make(map[string]*entityStorage, len(schema.EntityTypes))
	for i := range schema.EntityTypes {
		def := &schema.EntityTypes[i]
		b.defs[def.ID] = def
		b.storages[def.ID] = newEntityStorage(b, def)
	}
	b.attached = true

	b.logger.Info("backend attached",
		"data_dir", config.DataDir,
		"entity_types", len(schema.EntityTypes),
		"entities", loaded,
	)
	return nil
}

// Detach releases all resources held by the backend.
// Closes the SQLite connection. After Detach, Storage returns
// ErrBackendDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.defs = make(map[string]*types.EntityTypeDefinition)
	b.storages = make(map[string]*entityStorage)

	b.logger.Info("backend detached", "data_dir", b.config.DataDir)
	return nil
}

// handle returns the open database and the active config, or
// ErrBackendDetached.
func (b *Backend) handle() (*sql.DB, types.Config, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.Config{}, types.ErrBackendDetached
	}
	return b.db, b.config, nil
}

// applySchema executes every table and index statement.
func applySchema(db *sql.DB) error {
	for _, stmt := range append(append([]string(nil), schemaDDL...), indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// loadSchema parses the entity type definitions from path, or the built-in
// definitions when path is empty.
func loadSchema(path string) (types.Schema, error) {
	data := defaultEntityTypes
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return types.Schema{}, fmt.Errorf("reading schema file: %w", err)
		}
		data = raw
	}

	var schema types.Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return types.Schema{}, fmt.Errorf("%w: %v", types.ErrInvalidSchema, err)
	}
	if len(schema.EntityTypes) == 0 {
		return types.Schema{}, fmt.Errorf("%w: no entity types defined", types.ErrInvalidSchema)
	}
	if err := schema.Validate(); err != nil {
		return types.Schema{}, err
	}
	return schema, nil
}

// generateUUID generates a new UUID v7 for entity uuids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
