package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entitydriver/internal/condexpr"
	"github.com/mesh-intelligence/entitydriver/pkg/types"
)

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <entity-type> <values-json>",
		Short: "Create an entity and print its record",
		Long: `Create an entity of the given type from a JSON object of values, save it
and print its record. Example:

  entitydriver create node '{"type":"article","title":"Hello","uid":1}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var values map[string]any
			if err := json.Unmarshal([]byte(args[1]), &values); err != nil {
				return userError(fmt.Errorf("values must be a JSON object: %w", err))
			}
			if values == nil {
				return userError(fmt.Errorf("values must be a JSON object"))
			}

			driver, closeFn, err := a.openDriver()
			if err != nil {
				return err
			}
			defer closeFn()

			record, err := driver.Create(cmd.Context(), args[0], values)
			if err != nil {
				return classify(fmt.Errorf("create %s: %w", args[0], err))
			}
			return a.writeOutput(cmd.OutOrStdout(), record)
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <entity-type> <id>",
		Short: "Load one entity and print its record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, closeFn, err := a.openDriver()
			if err != nil {
				return err
			}
			defer closeFn()

			record, ok, err := driver.LoadOne(cmd.Context(), args[0], args[1])
			if err != nil {
				return classify(fmt.Errorf("load %s %s: %w", args[0], args[1], err))
			}
			if !ok {
				return userError(fmt.Errorf("%s %s not found", args[0], args[1]))
			}
			return a.writeOutput(cmd.OutOrStdout(), record)
		},
	}
}

func newLoadManyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load-many <entity-type> <id>...",
		Short: "Load several entities and print their records",
		Long:  "Load the entities with the given ids. Missing ids are skipped; records\nare printed in ascending id order.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, closeFn, err := a.openDriver()
			if err != nil {
				return err
			}
			defer closeFn()

			ids := make([]any, 0, len(args)-1)
			for _, id := range args[1:] {
				ids = append(ids, id)
			}
			records, err := driver.LoadMany(cmd.Context(), args[0], ids)
			if err != nil {
				return classify(fmt.Errorf("load %s: %w", args[0], err))
			}
			return a.writeOutput(cmd.OutOrStdout(), records)
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		or         bool
		where      []string
		conditions string
	)
	cmd := &cobra.Command{
		Use:   "query <entity-type>",
		Short: "Query entities and print the matching records",
		Long: `Query entities of the given type. Conditions come from --where expressions
and from --conditions, a JSON array of [field, value, operator, langcode]
tuples. Conditions are combined with AND unless --or is set. Access checks
are bypassed. Examples:

  entitydriver query node --where 'status = 1' --where 'title CONTAINS "Go"'
  entitydriver query node --or --conditions '[["uid", 1], ["uid", 2]]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conds, err := parseConditions(conditions, where)
			if err != nil {
				return userError(err)
			}
			conjunction := types.ConjunctionAnd
			if or {
				conjunction = types.ConjunctionOr
			}

			driver, closeFn, err := a.openDriver()
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := driver.Query(cmd.Context(), args[0], conds, conjunction)
			if err != nil {
				return classify(fmt.Errorf("query %s: %w", args[0], err))
			}
			return a.writeOutput(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&or, "or", false, "combine conditions with OR")
	cmd.Flags().StringArrayVar(&where, "where", nil, `condition expression, e.g. "status = 1" (repeatable)`)
	cmd.Flags().StringVar(&conditions, "conditions", "", "JSON array of condition tuples")
	return cmd
}

// parseConditions combines JSON condition tuples with --where expressions,
// tuples first.
func parseConditions(tuplesJSON string, where []string) ([]types.Condition, error) {
	var conds []types.Condition
	if tuplesJSON != "" {
		var tuples [][]any
		if err := json.Unmarshal([]byte(tuplesJSON), &tuples); err != nil {
			return nil, fmt.Errorf("%w: conditions must be a JSON array of arrays: %v", types.ErrInvalidCondition, err)
		}
		for i, tuple := range tuples {
			c, err := types.ConditionFromSlice(tuple)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i, err)
			}
			conds = append(conds, c)
		}
	}
	parsed, err := condexpr.ParseAll(where)
	if err != nil {
		return nil, err
	}
	return append(conds, parsed...), nil
}
