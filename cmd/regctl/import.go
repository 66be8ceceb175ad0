package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/internal/regtext"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

var (
	importEncoding   string
	importTransacted bool
	importOptimize   bool
)

func init() {
	cmd := newImportCmd()
	cmd.Flags().StringVar(&importEncoding, "encoding", "", "Input encoding when the file has no byte order mark (UTF-8, UTF-16LE, WINDOWS-1252)")
	cmd.Flags().BoolVar(&importTransacted, "transacted", true, "Apply all files in one transaction")
	cmd.Flags().BoolVar(&importOptimize, "optimize", false, "Merge the files' operations before applying them")
	rootCmd.AddCommand(cmd)
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.reg> [file.reg...]",
		Short: "Apply .reg files",
		Long: `The import command applies the keys and values of one or more .reg
files, in order. With --transacted (the default) a failure part way leaves
the store unchanged. With --optimize, writes overridden by a later file are
dropped before anything is applied.

Example:
  regctl import myapp.reg
  regctl import legacy.reg --encoding WINDOWS-1252
  regctl import base.reg patch1.reg patch2.reg --optimize`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args)
		},
	}
	return cmd
}

func runImport(ctx context.Context, args []string) error {
	files := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, data)
	}
	return withRegistry(func(reg *regkey.Registry) error {
		n, err := regtext.ImportFiles(ctx, reg, files, regtext.ImportOptions{
			Parse:      types.RegParseOptions{InputEncoding: importEncoding},
			Transacted: importTransacted,
			Optimize:   importOptimize,
		})
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}
		if jsonOut {
			return printJSON(map[string]any{"files": args, "operations": n, "success": true})
		}
		if len(args) == 1 {
			printInfo("Applied %d operations from %s\n", n, args[0])
		} else {
			printInfo("Applied %d operations from %d files\n", n, len(args))
		}
		return nil
	})
}
