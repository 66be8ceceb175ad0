package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

var copyTransacted bool

func init() {
	cmd := newCopyCmd()
	cmd.Flags().BoolVar(&copyTransacted, "transacted", true, "Copy inside one transaction")
	rootCmd.AddCommand(cmd)
}

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Copy a key tree",
		Long: `The copy command copies the values and subkeys of src into dst,
creating dst if needed. Existing values in dst are overwritten.

Example:
  regctl copy HKCU\\Software\\MyApp HKLM\\Software\\MyApp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd.Context(), args)
		},
	}
	return cmd
}

func runCopy(ctx context.Context, args []string) error {
	src, dst := args[0], args[1]
	return withRegistry(func(reg *regkey.Registry) error {
		srcRoot, srcRel, err := splitKeyPath(reg, src)
		if err != nil {
			return err
		}
		dstRoot, dstRel, err := splitKeyPath(reg, dst)
		if err != nil {
			return err
		}

		copyInto := func(tx *regkey.Transaction) error {
			root := dstRoot
			if tx != nil {
				bound, err := dstRoot.OpenSubkeyTransacted("", types.KEY_ALL_ACCESS, tx)
				if err != nil {
					return err
				}
				defer bound.Close()
				root = bound
			}
			target, _, err := root.CreateSubkey(dstRel, types.KEY_ALL_ACCESS)
			if err != nil {
				return err
			}
			defer target.Close()
			return srcRoot.CopyTree(srcRel, target)
		}

		if copyTransacted {
			err = reg.RunInTransaction(ctx, copyInto)
		} else {
			err = copyInto(nil)
		}
		if err != nil {
			return fmt.Errorf("failed to copy: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{"src": src, "dst": dst, "success": true})
		}
		printInfo("Copied %s to %s\n", src, dst)
		return nil
	})
}
