package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to dir/test.yaml next to a metadata
// directory and returns the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "metadata"), 0o755))
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
metadata:
  - metadata
requests:
  - Win32.System.Console.*
  - Beep
options:
  wide_char_only: true
  docs: extra.yml
  partition:
    mode: namespace
    depth: 2
assertions:
  - type: resolved_contains
    names: [Win32.System.Console.Beep]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "metadata")}, scenario.Metadata)
	assert.Equal(t, []string{"Win32.System.Console.*", "Beep"}, scenario.Requests)
	assert.True(t, scenario.Options.WideCharOnly)
	assert.Equal(t, filepath.Join(dir, "extra.yml"), scenario.Options.Docs)
	assert.Equal(t, "namespace", scenario.Options.Partition.Mode)
	assert.Equal(t, 2, scenario.Options.Partition.Depth)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertResolvedContains, scenario.Assertions[0].Type)
}

func TestLoadScenario_KeepsDocsKeywords(t *testing.T) {
	for _, docs := range []string{DocsBundled, DocsNone} {
		path := writeScenario(t, `
name: docs
description: "docs keyword"
metadata: [metadata]
options:
  docs: `+docs+`
assertions:
  - type: unit_count
    count: 1
`)
		scenario, err := LoadScenario(path)
		require.NoError(t, err)
		assert.Equal(t, docs, scenario.Options.Docs)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: test
description: "unknown field"
metadata: [metadata]
flow: []
assertions:
  - type: unit_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "missing name",
			content: `
description: "d"
metadata: [metadata]
assertions: [{type: unit_count}]
`,
			want: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
metadata: [metadata]
assertions: [{type: unit_count}]
`,
			want: "description is required",
		},
		{
			name: "missing metadata",
			content: `
name: n
description: "d"
assertions: [{type: unit_count}]
`,
			want: "metadata list is required",
		},
		{
			name: "metadata not found",
			content: `
name: n
description: "d"
metadata: [nowhere]
assertions: [{type: unit_count}]
`,
			want: "metadata directory not found",
		},
		{
			name: "unknown store",
			content: `
name: n
description: "d"
metadata: [metadata]
options: {store: postgres}
assertions: [{type: unit_count}]
`,
			want: `unknown store "postgres"`,
		},
		{
			name: "bad partition",
			content: `
name: n
description: "d"
metadata: [metadata]
options: {partition: {mode: tree}}
assertions: [{type: unit_count}]
`,
			want: "options.partition",
		},
		{
			name: "no assertions",
			content: `
name: n
description: "d"
metadata: [metadata]
`,
			want: "assertions list is required",
		},
		{
			name: "unknown assertion",
			content: `
name: n
description: "d"
metadata: [metadata]
assertions: [{type: trace_contains}]
`,
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "order needs two names",
			content: `
name: n
description: "d"
metadata: [metadata]
assertions: [{type: resolved_order, names: [A]}]
`,
			want: "at least two names",
		},
		{
			name: "request_failed needs request",
			content: `
name: n
description: "d"
metadata: [metadata]
assertions: [{type: request_failed}]
`,
			want: "request is required",
		},
		{
			name: "unit_contains needs unit",
			content: `
name: n
description: "d"
metadata: [metadata]
assertions: [{type: unit_contains, names: [A]}]
`,
			want: "unit and names are required",
		},
		{
			name: "file_contains needs text",
			content: `
name: n
description: "d"
metadata: [metadata]
assertions: [{type: file_contains, file: a.go}]
`,
			want: "file and text are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
