package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as stable text for golden comparison: the
// closure, the failed requests, the partition and every emitted file.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "run_id: %s\n", result.RunID)

	b.WriteString("\nresolved:\n")
	for i, n := range result.Resolved {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, n)
	}

	if len(result.Failures) > 0 {
		b.WriteString("\nfailed requests:\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}

	b.WriteString("\nunits:\n")
	for _, u := range result.Units {
		fmt.Fprintf(&b, "  %s -> %s\n", u.Name, u.FileName)
		for _, n := range u.Names {
			fmt.Fprintf(&b, "    - %s\n", n)
		}
	}

	for _, u := range result.Units {
		fmt.Fprintf(&b, "\n--- %s\n", u.FileName)
		b.Write(result.Files[u.FileName])
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not run. Snapshot mismatches fail
// t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
