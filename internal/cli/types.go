package cli

import (
	"github.com/spf13/cobra"
)

// typeSummary is the listing entry printed by the types command.
type typeSummary struct {
	ID           string   `json:"id"`
	Label        string   `json:"label,omitempty"`
	BundleKey    string   `json:"bundle_key,omitempty"`
	Bundles      []string `json:"bundles,omitempty"`
	Revisionable bool     `json:"revisionable"`
	Fieldable    bool     `json:"fieldable"`
	Account      bool     `json:"account"`
	Fields       []string `json:"fields,omitempty"`
	Links        []string `json:"links,omitempty"`
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the defined entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.backendConfig()
			if err != nil {
				return sysError(err)
			}
			backend, err := a.openBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Detach()

			defs := backend.Definitions()
			out := make([]typeSummary, 0, len(defs))
			for _, def := range defs {
				s := typeSummary{
					ID:           def.ID,
					Label:        def.Label,
					BundleKey:    def.BundleKey,
					Bundles:      def.Bundles,
					Revisionable: def.Revisionable,
					Fieldable:    def.Fieldable,
					Account:      def.Account,
					Links:        def.LinkTemplateNames(),
				}
				for _, f := range def.Fields {
					s.Fields = append(s.Fields, f.Name)
				}
				out = append(out, s)
			}
			return a.writeOutput(cmd.OutOrStdout(), out)
		},
	}
}
