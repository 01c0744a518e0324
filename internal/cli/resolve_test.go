package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConsoleWildcard(t *testing.T) {
	output, err := execute(t, NewResolveCommand(&RootOptions{Format: "json"}),
		"--metadata", testMetadata, "--wide-char-only", "Win32.System.Console.*")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ResolveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	names := make([]string, len(resp.Data.Declarations))
	for i, d := range resp.Data.Declarations {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"Win32.System.Console.Beep",
		"Win32.System.Console.GetConsoleTitleW",
		"Win32.System.Console.SetConsoleCtrlHandler",
		"Win32.System.Console.SetConsoleCursorPosition",
		"Win32.System.Console.PHANDLER_ROUTINE",
		"Win32.Foundation.HANDLE",
		"Win32.System.Console.COORD",
		"Win32.System.Console.CTRL_EVENT",
		"Win32.Foundation.CloseHandle",
	}, names)

	require.Len(t, resp.Data.Requests, 1)
	assert.Equal(t, "Win32.System.Console.*", resp.Data.Requests[0].Request)
	assert.Len(t, resp.Data.Requests[0].Roots, 4)
}

func TestResolveText(t *testing.T) {
	output, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}),
		"--metadata", testMetadata, "MessageBoxW")
	require.NoError(t, err)

	assert.Contains(t, output, "method    Win32.UI.WindowsAndMessaging.MessageBoxW\n")
	assert.Contains(t, output, "handle    Win32.Foundation.HWND\n")
	assert.Contains(t, output, "4 declaration(s) from 1 request(s)")
}

func TestResolveNotFound(t *testing.T) {
	output, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}),
		"--metadata", testMetadata, "Beep", "Nope", "Win32.Nothing.*")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, output, "method    Win32.System.Console.Beep")
	assert.Contains(t, output, `name not found: "Nope"`)
	assert.Contains(t, output, `no extern methods match "Win32.Nothing.*"`)
}

func TestResolveBrokenMetadata(t *testing.T) {
	output, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}),
		"--metadata", brokenMetadata(t), "UseMissing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "Error [E202]")
}

func TestResolveFromDatabase(t *testing.T) {
	db := importTestdata(t)

	output, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}),
		"--db", db, "--wide-char-only", "Win32.System.Console.*")
	require.NoError(t, err)
	assert.Contains(t, output, "9 declaration(s) from 1 request(s)")
	assert.NotContains(t, output, "GetConsoleTitleA")
}

func TestResolveWideCharOnlyByDefault(t *testing.T) {
	output, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}),
		"--metadata", testMetadata, "Win32.System.Console.*")
	require.NoError(t, err)
	assert.Contains(t, output, "GetConsoleTitleW")
	assert.NotContains(t, output, "GetConsoleTitleA")

	output, err = execute(t, NewResolveCommand(&RootOptions{Format: "text"}),
		"--metadata", testMetadata, "--wide-char-only=false", "Win32.System.Console.*")
	require.NoError(t, err)
	assert.Contains(t, output, "GetConsoleTitleA")
}
