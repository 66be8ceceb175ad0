package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/regkey"
)

var deleteKeyRecursive bool

func init() {
	cmd := newDeleteKeyCmd()
	cmd.Flags().BoolVarP(&deleteKeyRecursive, "recursive", "r", false, "Delete subkeys too (required if has subkeys)")
	rootCmd.AddCommand(cmd)
}

func newDeleteKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-key <path>",
		Short: "Delete a key",
		Long: `The delete-key command deletes a key. A key with subkeys is only deleted
with --recursive; a recursive delete of a missing key succeeds.

Example:
  regctl delete-key HKCU\\Software\\OldApp
  regctl delete-key HKCU\\Software\\OldApp --recursive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteKey(args)
		},
	}
	return cmd
}

func runDeleteKey(args []string) error {
	keyPath := args[0]
	return withRegistry(func(reg *regkey.Registry) error {
		root, rel, err := splitKeyPath(reg, keyPath)
		if err != nil {
			return err
		}
		if rel == "" {
			return errors.New("refusing to delete a root key")
		}

		if deleteKeyRecursive {
			err = root.DeleteSubkeyAll(rel)
		} else {
			err = root.DeleteSubkey(rel)
		}
		if err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{
				"path":      keyPath,
				"recursive": deleteKeyRecursive,
				"success":   true,
			})
		}
		printInfo("Deleted %s\n", keyPath)
		return nil
	})
}
