package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Show key metadata",
		Long: `The info command reports a key's subkey and value counts, the longest
names and data, and its last write time.

Example:
  regctl info HKCU\\Software\\MyApp
  regctl info HKLM --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) error {
	keyPath := args[0]
	return withRegistry(func(reg *regkey.Registry) error {
		k, err := openKey(reg, keyPath, types.KEY_QUERY_VALUE)
		if err != nil {
			return fmt.Errorf("failed to open key: %w", err)
		}
		defer k.Close()

		md, err := k.QueryInfo()
		if err != nil {
			return fmt.Errorf("failed to query key: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{
				"path":               k.Path(),
				"subkeys":            md.SubKeys,
				"values":             md.Values,
				"max_subkey_len":     md.MaxSubKeyLen,
				"max_value_name_len": md.MaxValueNameLen,
				"max_value_len":      md.MaxValueLen,
				"last_write":         md.LastWrite.UTC().Format(time.RFC3339),
			})
		}

		printInfo("Key: %s\n", k.Path())
		printInfo("  Subkeys: %d\n", md.SubKeys)
		printInfo("  Values: %d\n", md.Values)
		printInfo("  Longest subkey name: %d\n", md.MaxSubKeyLen)
		printInfo("  Longest value name: %d\n", md.MaxValueNameLen)
		printInfo("  Largest value: %d bytes\n", md.MaxValueLen)
		printInfo("  Last write: %s\n", md.LastWrite.UTC().Format(time.RFC3339))
		return nil
	})
}
