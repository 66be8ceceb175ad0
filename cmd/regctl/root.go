package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
	"github.com/joshuapare/regkit/store/boltstore"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	native      bool
	storePath   string
	compression string
)

var rootCmd = &cobra.Command{
	Use:   "regctl",
	Short: "Inspect and edit a registry store",
	Long: `regctl reads and edits a registry store: the native Windows registry
or a durable emulated store kept in a bbolt file. Paths start with a root key
name, long or short (HKEY_CURRENT_USER\Software or HKCU\Software).`,
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{Enabled: verbose && !quiet, Level: slog.LevelDebug})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		BoolVar(&native, "native", false, "Use the native Windows registry instead of a store file")
	rootCmd.PersistentFlags().
		StringVar(&storePath, "store", defaultStorePath(), "Store file (env REGCTL_STORE)")
	rootCmd.PersistentFlags().
		StringVar(&compression, "compression", "zstd", "Compression for large values (none, lz4, zstd)")
}

func defaultStorePath() string {
	if p := os.Getenv("REGCTL_STORE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "regctl.db"
	}
	return filepath.Join(home, ".regctl", "store.db")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRegistry opens the registry selected by the global flags. The caller
// closes it.
func openRegistry() (*regkey.Registry, error) {
	if native {
		if runtime.GOOS != "windows" {
			return nil, errors.New("--native is only available on Windows")
		}
		return regkey.Default(), nil
	}

	comp, err := boltstore.ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	opts := boltstore.Options{Compression: comp}
	if comp == boltstore.CompressionNone {
		opts.CompressThreshold = -1
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	printVerbose("Opening store: %s\n", storePath)
	s, err := boltstore.OpenStore(storePath, opts, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return regkey.New(s), nil
}

// withRegistry runs fn against the selected registry and closes it after.
func withRegistry(fn func(reg *regkey.Registry) error) (err error) {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() {
		if native {
			return
		}
		if cerr := reg.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(reg)
}

// splitKeyPath resolves a full path argument into its root key and the
// path below it.
func splitKeyPath(reg *regkey.Registry, full string) (*regkey.Key, string, error) {
	root, rel, ok := types.SplitRootPath(full)
	if !ok {
		return nil, "", fmt.Errorf("unknown root key in %q", full)
	}
	return reg.Predef(root), rel, nil
}

func openKey(reg *regkey.Registry, full string, access types.Access) (*regkey.Key, error) {
	root, rel, err := splitKeyPath(reg, full)
	if err != nil {
		return nil, err
	}
	return root.OpenSubkey(rel, access)
}

func createKey(reg *regkey.Registry, full string) (*regkey.Key, error) {
	root, rel, err := splitKeyPath(reg, full)
	if err != nil {
		return nil, err
	}
	k, _, err := root.CreateSubkey(rel, types.KEY_ALL_ACCESS)
	return k, err
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
