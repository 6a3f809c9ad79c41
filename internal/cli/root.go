// Package cli implements the entitydriver command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/entitydriver/internal/paths"
	"github.com/mesh-intelligence/entitydriver/pkg/entitydriver"
	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Output formats accepted by --format.
const (
	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	format    string
	verbose   bool
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	config    *viper.Viper
	logger    *slog.Logger
}

// NewRootCmd creates the top-level "entitydriver" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "entitydriver",
		Short:   "Create, load and query entities",
		Long:    "entitydriver creates, loads and queries entities and prints them as\nflat records with computed metadata and expanded references.",
		Version: entitydriver.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().StringVar(&a.flags.format, "format", formatJSON, "output format: json or msgpack")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newTypesCmd(a))
	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newLoadCmd(a))
	root.AddCommand(newLoadManyCmd(a))
	root.AddCommand(newQueryCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// setup validates global flags, builds the logger and loads config.yaml.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.flags.format != formatJSON && a.flags.format != formatMsgpack {
		return userError(fmt.Errorf("unknown format %q (valid: %s, %s)", a.flags.format, formatJSON, formatMsgpack))
	}

	level := slog.LevelWarn
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	a.configDir = configDir
	a.config = cfg
	return nil
}

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }

func sysError(err error) error { return &exitError{code: exitSysError, err: err} }

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitUserError
}

// userErrors are the sentinels caused by bad input rather than the system.
var userErrors = []error{
	types.ErrEntityTypeNotFound,
	types.ErrInvalidData,
	types.ErrUnknownField,
	types.ErrInvalidValue,
	types.ErrCardinality,
	types.ErrInvalidBundle,
	types.ErrInvalidOperator,
	types.ErrInvalidConjunction,
	types.ErrInvalidCondition,
	types.ErrInvalidSchema,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
}

// classify tags err as a user or system error.
func classify(err error) error {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return sysError(err)
}
