// Package paths resolves configuration and data directory locations for the
// entitydriver CLI.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "entitydriver"

// CWD-relative data directory used when nothing else is configured.
const DefaultDataDirName = ".entitydriver-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "ENTITYDRIVER_CONFIG_DIR"
	EnvDataDir   = "ENTITYDRIVER_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/entitydriver (fallback ~/.config/entitydriver)
// macOS:   ~/Library/Application Support/entitydriver
// Windows: %APPDATA%/entitydriver
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/entitydriver (fallback ~/.local/share/entitydriver)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// xdgDir resolves AppName under an XDG base directory on Linux and under
// os.UserConfigDir elsewhere.
func xdgDir(env, homeFallback string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeFallback, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > ENTITYDRIVER_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > ENTITYDRIVER_DATA_DIR env > $(CWD)/.entitydriver-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	for _, candidate := range []string{flag, configYAMLValue, os.Getenv(EnvDataDir)} {
		if candidate != "" {
			return filepath.Abs(candidate)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveSchemaFile returns the entity type schema path from config.yaml.
// Relative paths are taken relative to configDir; empty means the built-in
// schema.
func ResolveSchemaFile(configDir, configYAMLValue string) string {
	if configYAMLValue == "" || filepath.IsAbs(configYAMLValue) {
		return configYAMLValue
	}
	return filepath.Join(configDir, configYAMLValue)
}
