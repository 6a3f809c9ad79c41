// Config loading for the entitydriver CLI.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/entitydriver/internal/paths"
	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyBaseURL     = "base_url"
	cfgKeyLangcode    = "default_langcode"
	cfgKeySchemaFile  = "schema_file"
	cfgKeyAdminAccess = "admin_access"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend         string `yaml:"backend"`
	DataDir         string `yaml:"data_dir,omitempty"`
	BaseURL         string `yaml:"base_url,omitempty"`
	DefaultLangcode string `yaml:"default_langcode,omitempty"`
	SchemaFile      string `yaml:"schema_file,omitempty"`
}

// loadConfig reads config.yaml from configDir using Viper. A missing
// config.yaml is not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLangcode, types.DefaultLangcode)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// backendConfig assembles the backend Config from flags and config.yaml.
func (a *app) backendConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend:         a.config.GetString(cfgKeyBackend),
		DataDir:         dataDir,
		BaseURL:         a.config.GetString(cfgKeyBaseURL),
		DefaultLangcode: a.config.GetString(cfgKeyLangcode),
		SchemaFile:      paths.ResolveSchemaFile(a.configDir, a.config.GetString(cfgKeySchemaFile)),
		AdminAccess:     a.config.GetBool(cfgKeyAdminAccess),
	}, nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
