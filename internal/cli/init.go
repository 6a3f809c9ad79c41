package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize entity storage",
		Long:  "Write config.yaml if it is missing, then attach and detach the storage backend\nto create the data directory and its JSONL files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.backendConfig()
			if err != nil {
				return sysError(err)
			}

			written, err := writeConfigIfMissing(filepath.Join(a.configDir, configFileExt), configFile{
				Backend: cfg.Backend,
				DataDir: cfg.DataDir,
				BaseURL: cfg.BaseURL,
			})
			if err != nil {
				return sysError(err)
			}
			if written {
				a.logger.Info("config written", "config_dir", a.configDir)
			}

			backend, err := a.openBackend(cfg)
			if err != nil {
				return err
			}
			if err := backend.Detach(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "entitydriver initialized in %s\n", cfg.DataDir)
			return nil
		},
	}
}
