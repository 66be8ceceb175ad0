package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

var (
	keysRecursive bool
	keysDepth     int
)

func init() {
	cmd := newKeysCmd()
	cmd.Flags().BoolVarP(&keysRecursive, "recursive", "r", false, "List all subkeys recursively")
	cmd.Flags().IntVar(&keysDepth, "depth", 0, "Maximum recursion depth (0 = unlimited)")
	rootCmd.AddCommand(cmd)
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys <path>",
		Short: "List the subkeys of a key",
		Long: `The keys command lists the subkeys of a key in enumeration order.

Example:
  regctl keys HKCU\\Software
  regctl keys HKLM\\Software\\Vendor --recursive --depth 2
  regctl keys HKCU --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(args)
		},
	}
	return cmd
}

type keyEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

func runKeys(args []string) error {
	keyPath := args[0]
	return withRegistry(func(reg *regkey.Registry) error {
		k, err := openKey(reg, keyPath, types.KEY_READ)
		if err != nil {
			return fmt.Errorf("failed to open key: %w", err)
		}
		defer k.Close()

		keys := []keyEntry{}
		if err := collectKeys(k, 1, &keys); err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{
				"path":  k.Path(),
				"keys":  keys,
				"count": len(keys),
			})
		}
		for _, key := range keys {
			if keysRecursive {
				printInfo("%s\n", key.Path)
			} else {
				printInfo("%s\n", key.Name)
			}
		}
		return nil
	})
}

func collectKeys(k *regkey.Key, depth int, out *[]keyEntry) error {
	names, err := k.SubkeyNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		child := keyEntry{Name: name, Path: k.Path() + `\` + name, Depth: depth}
		*out = append(*out, child)
		if !keysRecursive || (keysDepth > 0 && depth >= keysDepth) {
			continue
		}
		err := k.With(name, types.KEY_READ, func(sub *regkey.Key) error {
			return collectKeys(sub, depth+1, out)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
