package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/internal/regtext"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

var (
	exportEncoding string
	exportBOM      bool
)

func init() {
	cmd := newExportCmd()
	cmd.Flags().StringVar(&exportEncoding, "encoding", regtext.EncodingUTF16LE, "Output encoding (UTF-8, UTF-16LE)")
	cmd.Flags().BoolVar(&exportBOM, "bom", true, "Write a byte order mark")
	rootCmd.AddCommand(cmd)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <path> [output.reg]",
		Short: "Export a key tree to .reg format",
		Long: `The export command writes a key and everything below it as a .reg file,
UTF-16LE with a byte order mark by default as regedit writes it. Without an
output file the text goes to stdout.

Example:
  regctl export HKCU\\Software\\MyApp myapp.reg
  regctl export HKCU\\Software\\MyApp --encoding UTF-8 --bom=false`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args)
		},
	}
	return cmd
}

func runExport(args []string) error {
	keyPath := args[0]
	return withRegistry(func(reg *regkey.Registry) error {
		k, err := openKey(reg, keyPath, types.KEY_READ)
		if err != nil {
			return fmt.Errorf("failed to open key: %w", err)
		}
		defer k.Close()

		data, err := regtext.Export(k, types.RegExportOptions{OutputEncoding: exportEncoding, WithBOM: exportBOM})
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}

		if len(args) < 2 {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if jsonOut {
			return printJSON(map[string]any{"path": k.Path(), "output": args[1], "bytes": len(data)})
		}
		printInfo("Exported %s to %s (%d bytes)\n", k.Path(), args[1], len(data))
		return nil
	})
}
