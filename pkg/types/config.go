package types

import "errors"

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
	// BaseURL prefixes every generated entity URL.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// DefaultLangcode is assigned to entities created without a langcode.
	DefaultLangcode string `json:"default_langcode" yaml:"default_langcode"`
	// SchemaFile overrides the built-in entity type definitions.
	SchemaFile string `json:"schema_file" yaml:"schema_file"`
	// AdminAccess lets access-checked queries see unpublished entities.
	AdminAccess bool `json:"admin_access" yaml:"admin_access"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultLangcode is used when Config.DefaultLangcode is empty.
const DefaultLangcode = "en"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// Langcode returns the configured default langcode, or DefaultLangcode.
func (c Config) Langcode() string {
	if c.DefaultLangcode == "" {
		return DefaultLangcode
	}
	return c.DefaultLangcode
}
