package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/internal/regtext"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

func init() {
	rootCmd.AddCommand(newValuesCmd())
}

func newValuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "values <path>",
		Short: "List all values of a key",
		Long: `The values command lists the values of a key in enumeration order.
Text output uses .reg value lines so it can be pasted into a .reg file.

Example:
  regctl values HKCU\\Software\\Vendor
  regctl values HKCU\\Software\\Vendor --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValues(args)
		},
	}
	return cmd
}

func runValues(args []string) error {
	keyPath := args[0]
	return withRegistry(func(reg *regkey.Registry) error {
		k, err := openKey(reg, keyPath, types.KEY_READ)
		if err != nil {
			return fmt.Errorf("failed to open key: %w", err)
		}
		defer k.Close()

		entries := []valueEntry{}
		it := k.EnumValues()
		for it.Next() {
			entries = append(entries, describeValue(it.Name(), it.Value()))
			if !jsonOut {
				printInfo("%s\n", regtext.FormatValue(it.Name(), it.Value()))
			}
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("failed to list values: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{
				"path":   k.Path(),
				"values": entries,
				"count":  len(entries),
			})
		}
		return nil
	})
}
