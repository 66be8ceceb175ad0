package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
	"github.com/joshuapare/regkit/values"
)

var setType string

func init() {
	cmd := newSetCmd()
	cmd.Flags().StringVar(&setType, "type", "sz", "Value type (sz, expand_sz, multi_sz, dword, qword, binary)")
	rootCmd.AddCommand(cmd)
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <path> <name> <value>",
		Short: "Set a value, creating the key if needed",
		Long: `The set command writes one value. Missing keys on the path are created.
multi_sz entries are separated by \0; binary data is hex.

Example:
  regctl set HKCU\\Software\\MyApp Version 1.0.0
  regctl set HKCU\\Software\\MyApp Enabled 1 --type dword
  regctl set HKCU\\Software\\MyApp Paths 'C:\a\0C:\b' --type multi_sz
  regctl set HKCU\\Software\\MyApp Data 0102030405 --type binary`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(args)
		},
	}
	return cmd
}

func runSet(args []string) error {
	keyPath, name, raw := args[0], args[1], args[2]
	v, err := parseValueString(raw, setType)
	if err != nil {
		return fmt.Errorf("failed to parse value: %w", err)
	}

	return withRegistry(func(reg *regkey.Registry) error {
		k, err := createKey(reg, keyPath)
		if err != nil {
			return fmt.Errorf("failed to create key: %w", err)
		}
		defer k.Close()

		if err := k.SetRawValue(name, v); err != nil {
			return fmt.Errorf("failed to set value: %w", err)
		}

		if jsonOut {
			return printJSON(map[string]any{
				"path":    k.Path(),
				"name":    name,
				"type":    v.Type.String(),
				"success": true,
			})
		}
		printInfo("Set %s\\%s (%s)\n", k.Path(), name, v.Type)
		return nil
	})
}

// parseValueString converts command line text to a typed value.
func parseValueString(s, typ string) (types.RegValue, error) {
	switch strings.ToLower(typ) {
	case "sz", "string":
		return values.String.Encode(s)
	case "expand_sz":
		return values.Expand.Encode(values.ExpandString(s))
	case "multi_sz":
		var parts []string
		if s != "" {
			parts = strings.Split(s, `\0`)
		}
		return values.MultiString.Encode(parts)
	case "dword":
		n, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return types.RegValue{}, err
		}
		return values.DWORD.Encode(uint32(n))
	case "qword":
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return types.RegValue{}, err
		}
		return values.QWORD.Encode(n)
	case "binary":
		b, err := hex.DecodeString(strings.ReplaceAll(s, ",", ""))
		if err != nil {
			return types.RegValue{}, err
		}
		return values.Binary.Encode(b)
	default:
		return types.RegValue{}, fmt.Errorf("unknown value type %q", typ)
	}
}
