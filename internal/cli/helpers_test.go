package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var testMetadata = filepath.Join("..", "..", "testdata", "metadata")

// execute runs cmd with args and returns stdout and the command error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFile writes content under dir, creating parents.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// brokenMetadata writes a metadata directory whose only method references
// a type that is not declared.
func brokenMetadata(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, dir, "broken.cue", `package metadata

namespace: "Win32.Broken": {
	method: UseMissing: {
		dll:    "KERNEL32.dll"
		extern: true
		params: [{name: "p", type: "Win32.Missing.THING"}]
	}
}
`)
	return dir
}

// importTestdata imports the shared metadata into a fresh database.
func importTestdata(t *testing.T) string {
	t.Helper()

	db := filepath.Join(t.TempDir(), "win32.db")
	_, err := execute(t, NewImportCommand(&RootOptions{Format: "text"}), testMetadata, "--db", db)
	require.NoError(t, err)
	return db
}
