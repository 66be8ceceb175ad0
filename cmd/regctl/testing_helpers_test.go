package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// useTempStore points the global flags at a fresh store file and resets
// output modes.
func useTempStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	storePath = path
	compression = "zstd"
	native = false
	quiet = false
	verbose = false
	jsonOut = false
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String(), fnErr
}

// mustRun runs a command and fails the test on error.
func mustRun(t *testing.T, fn func() error) string {
	t.Helper()
	out, err := captureOutput(t, fn)
	require.NoError(t, err, out)
	return out
}

// decodeJSON parses command output as a JSON object.
func decodeJSON(t *testing.T, output string) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result), output)
	return result
}

func isWindows() bool { return runtime.GOOS == "windows" }
