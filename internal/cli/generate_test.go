package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/generator"
)

func newTestGenerateCommand(format string) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{
		RootOptions: &RootOptions{Format: format},
		IDs:         generator.NewFixedGenerator("run-1"),
	})
}

func TestGenerateConsoleWildcard(t *testing.T) {
	out := t.TempDir()

	output, err := execute(t, newTestGenerateCommand("text"),
		"--metadata", testMetadata, "--out", out, "--docs", "none",
		"--wide-char-only", "--partition", "namespace",
		"Win32.System.Console.*")
	require.NoError(t, err)

	assert.Contains(t, output, "✓ Win32.Foundation.go (2 declarations)")
	assert.Contains(t, output, "✓ Win32.System.Console.go (7 declarations)")
	assert.Contains(t, output, "Generated 2 of 2 file(s), 9 declaration(s)")
	assert.Contains(t, output, "(run run-1)")

	console, err := os.ReadFile(filepath.Join(out, "Win32.System.Console.go"))
	require.NoError(t, err)
	assert.Contains(t, string(console), "// Code generated by bindgen. DO NOT EDIT.")
	assert.Contains(t, string(console), "package win32")
	assert.Contains(t, string(console), "GetConsoleTitleW")
	assert.NotContains(t, string(console), "GetConsoleTitleA")

	foundation, err := os.ReadFile(filepath.Join(out, "Win32.Foundation.go"))
	require.NoError(t, err)
	assert.Contains(t, string(foundation), "type HANDLE uintptr")
}

func TestGenerateJSON(t *testing.T) {
	out := t.TempDir()

	output, err := execute(t, newTestGenerateCommand("json"),
		"--metadata", testMetadata, "--out", out, "--docs", "none", "MessageBoxW")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		RunID  string         `json:"run_id"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 4, resp.Data.Declarations)
	require.Len(t, resp.Data.Units, 1)
	assert.Equal(t, "bindings.go", resp.Data.Units[0].File)
	assert.True(t, resp.Data.Units[0].Written)
	assert.Empty(t, resp.Data.Failures)
}

func TestGenerateNotFoundStillEmits(t *testing.T) {
	out := t.TempDir()

	output, err := execute(t, newTestGenerateCommand("text"),
		"--metadata", testMetadata, "--out", out, "--docs", "none", "MessageBoxW", "Nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, output, "Error [E201]")
	assert.Contains(t, output, `"Nope"`)
	assert.FileExists(t, filepath.Join(out, "bindings.go"))
}

func TestGenerateCleansOutputDirectory(t *testing.T) {
	out := t.TempDir()
	writeFile(t, out, "stale.go", "package win32\n")
	writeFile(t, out, "notes.txt", "keep me\n")
	writeFile(t, out, ".bindgen-123.tmp", "partial")

	_, err := execute(t, newTestGenerateCommand("text"),
		"--metadata", testMetadata, "--out", out, "--docs", "none", "Beep")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(out, "stale.go"))
	assert.NoFileExists(t, filepath.Join(out, ".bindgen-123.tmp"))
	assert.FileExists(t, filepath.Join(out, "notes.txt"))
	assert.FileExists(t, filepath.Join(out, "bindings.go"))
}

func TestGenerateNoClean(t *testing.T) {
	out := t.TempDir()
	writeFile(t, out, "stale.go", "package win32\n")

	_, err := execute(t, newTestGenerateCommand("text"),
		"--metadata", testMetadata, "--out", out, "--docs", "none", "--clean=false", "Beep")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "stale.go"))
	assert.FileExists(t, filepath.Join(out, "bindings.go"))
}

func TestGenerateRules(t *testing.T) {
	out := t.TempDir()

	output, err := execute(t, newTestGenerateCommand("text"),
		"--metadata", testMetadata, "--out", out, "--docs", "none",
		"--rule", "Win32.Foundation.**=foundation", "--unit", "console",
		"Win32.System.Console.SetConsoleCursorPosition")
	require.NoError(t, err)

	assert.Contains(t, output, "✓ console.go")
	assert.Contains(t, output, "✓ foundation.go")
}

func TestGenerateConfigFile(t *testing.T) {
	dir := t.TempDir()
	metadataDir, err := filepath.Abs(testMetadata)
	require.NoError(t, err)

	cfg := writeFile(t, dir, "bindgen.yaml", `metadata: `+metadataDir+`
out: gen
docs: none
package: console
wide_char_only: true
partition:
  mode: single
  unit: console
`)

	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfg},
		IDs:         generator.NewFixedGenerator("run-1"),
	}
	_, err = execute(t, newGenerateCommand(opts), "Win32.System.Console.*")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "gen", "console.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package console")
	assert.NotContains(t, string(data), "GetConsoleTitleA")
}

func TestGenerateConfigDisablesWideCharOnly(t *testing.T) {
	dir := t.TempDir()
	metadataDir, err := filepath.Abs(testMetadata)
	require.NoError(t, err)

	cfg := writeFile(t, dir, "bindgen.yaml", `metadata: `+metadataDir+`
out: gen
docs: none
wide_char_only: false
`)

	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfg},
		IDs:         generator.NewFixedGenerator("run-1"),
	}
	_, err = execute(t, newGenerateCommand(opts), "Win32.System.Console.*")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "gen", "bindings.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GetConsoleTitleA")
	assert.Contains(t, string(data), "GetConsoleTitleW")
}

func TestGenerateFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	metadataDir, err := filepath.Abs(testMetadata)
	require.NoError(t, err)

	cfg := writeFile(t, dir, "bindgen.yaml", `metadata: `+metadataDir+`
out: gen
docs: none
package: fromconfig
`)

	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfg},
		IDs:         generator.NewFixedGenerator("run-1"),
	}
	_, err = execute(t, newGenerateCommand(opts), "--package", "fromflag", "Beep")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "gen", "bindings.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package fromflag")
}

func TestGenerateFromDatabase(t *testing.T) {
	db := importTestdata(t)
	out := t.TempDir()

	output, err := execute(t, newTestGenerateCommand("text"),
		"--db", db, "--out", out, "--docs", "none", "MessageBoxW")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ bindings.go (4 declarations)")
}

func TestGenerateBrokenMetadata(t *testing.T) {
	out := t.TempDir()

	output, err := execute(t, newTestGenerateCommand("text"),
		"--metadata", brokenMetadata(t), "--out", out, "--docs", "none", "UseMissing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "Error [E202]")
	assert.Contains(t, output, "Win32.Missing.THING")
	assert.NoFileExists(t, filepath.Join(out, "bindings.go"))
}

func TestGenerateCommandErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing out", []string{"--metadata", testMetadata, "Beep"}, ErrCodeConfig},
		{"no source", []string{"--out", out, "Beep"}, ErrCodeConfig},
		{"both sources", []string{"--metadata", testMetadata, "--db", "x.db", "--out", out, "Beep"}, ErrCodeConfig},
		{"bad rule", []string{"--metadata", testMetadata, "--out", out, "--rule", "nounit", "Beep"}, ErrCodeConfig},
		{"bad mode", []string{"--metadata", testMetadata, "--out", out, "--partition", "tree", "Beep"}, ErrCodeConfig},
		{"negative workers", []string{"--metadata", testMetadata, "--out", out, "--workers=-1", "Beep"}, ErrCodeConfig},
		{"missing metadata", []string{"--metadata", "does-not-exist", "--out", out, "Beep"}, compiler.ErrCodeNotFound},
		{"missing docs", []string{"--metadata", testMetadata, "--out", out, "--docs", "missing.yaml", "Beep"}, ErrCodeStartup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, newTestGenerateCommand("json"), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(output), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}

	assert.NoDirExists(t, out, "no command error may create the output directory")
}
