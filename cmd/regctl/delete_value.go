package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

func init() {
	rootCmd.AddCommand(newDeleteValueCmd())
}

func newDeleteValueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-value <path> <name>",
		Short: "Delete a value",
		Long: `The delete-value command removes one value from a key.

Example:
  regctl delete-value HKCU\\Software\\MyApp Version`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteValue(args)
		},
	}
	return cmd
}

func runDeleteValue(args []string) error {
	keyPath, name := args[0], args[1]
	return withRegistry(func(reg *regkey.Registry) error {
		k, err := openKey(reg, keyPath, types.KEY_SET_VALUE)
		if err != nil {
			return fmt.Errorf("failed to open key: %w", err)
		}
		defer k.Close()
		if err := k.DeleteValue(name); err != nil {
			return fmt.Errorf("failed to delete value: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{"path": k.Path(), "name": name, "success": true})
		}
		printInfo("Deleted %s\\%s\n", k.Path(), name)
		return nil
	})
}
