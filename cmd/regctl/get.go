package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
	"github.com/joshuapare/regkit/values"
)

var getShowType bool

func init() {
	cmd := newGetCmd()
	cmd.Flags().BoolVar(&getShowType, "type", false, "Show type information")
	rootCmd.AddCommand(cmd)
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path> <name>",
		Short: "Get a specific value",
		Long: `The get command prints one value of a key. Use "" for the default value.

Example:
  regctl get HKCU\\Software\\Vendor Version
  regctl get HKCU\\Software\\Vendor Count --type
  regctl get HKCU\\Software\\Vendor "" --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args)
		},
	}
	return cmd
}

func runGet(args []string) error {
	keyPath, name := args[0], args[1]
	return withRegistry(func(reg *regkey.Registry) error {
		k, err := openKey(reg, keyPath, types.KEY_QUERY_VALUE)
		if err != nil {
			return fmt.Errorf("failed to open key: %w", err)
		}
		defer k.Close()

		v, err := k.GetRawValue(name)
		if err != nil {
			return fmt.Errorf("failed to get value: %w", err)
		}
		entry := describeValue(name, v)
		if jsonOut {
			return printJSON(entry)
		}
		if getShowType {
			printInfo("%s: %s\n", entry.Type, entry.Data)
		} else {
			printInfo("%s\n", entry.Data)
		}
		return nil
	})
}

type valueEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int    `json:"size"`
	Data string `json:"data"`
}

// describeValue renders v for display. Payloads that do not decode as
// their type fall back to hex.
func describeValue(name string, v types.RegValue) valueEntry {
	e := valueEntry{Name: name, Type: v.Type.String(), Size: len(v.Bytes)}
	switch v.Type {
	case types.REG_SZ, types.REG_EXPAND_SZ, types.REG_LINK:
		if s, err := values.String.Decode(types.RegValue{Bytes: v.Bytes, Type: types.REG_SZ}); err == nil {
			e.Data = s
			return e
		}
	case types.REG_MULTI_SZ:
		if ss, err := values.MultiStringLenient.Decode(v); err == nil {
			e.Data = strings.Join(ss, `\0`)
			return e
		}
	case types.REG_DWORD:
		if n, err := values.DWORD.Decode(v); err == nil {
			e.Data = fmt.Sprintf("0x%08x (%d)", n, n)
			return e
		}
	case types.REG_DWORD_BIG_ENDIAN:
		if n, err := values.DWORDBigEndian.Decode(v); err == nil {
			e.Data = fmt.Sprintf("0x%08x (%d)", n, n)
			return e
		}
	case types.REG_QWORD:
		if n, err := values.QWORD.Decode(v); err == nil {
			e.Data = fmt.Sprintf("0x%016x (%d)", n, n)
			return e
		}
	}
	e.Data = hex.EncodeToString(v.Bytes)
	return e
}
