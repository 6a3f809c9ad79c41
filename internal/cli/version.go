package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entitydriver/pkg/entitydriver"
)

const modulePath = "github.com/mesh-intelligence/entitydriver"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the entitydriver version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "entitydriver v%s\nmodule: %s\n", entitydriver.Version, modulePath)
			return nil
		},
	}
}
