package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.RunID = "run-1"
	r.Resolved = []string{"Ns.A", "Ns.B", "Other.C"}
	r.Failures = []string{"Missing"}
	r.Units = []UnitResult{
		{Name: "Ns", FileName: "Ns.go", Names: []string{"Ns.A", "Ns.B"}},
		{Name: "Other", FileName: "Other.go", Names: []string{"Other.C"}},
	}
	r.Files["Ns.go"] = []byte("package win32\n\ntype A struct{}\n")
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertResolvedContains, Names: []string{"Ns.A", "Other.C"}},
		{Type: AssertResolvedExcludes, Names: []string{"Ns.Z"}},
		{Type: AssertResolvedOrder, Names: []string{"Ns.A", "Other.C"}},
		{Type: AssertResolvedCount, Count: 3},
		{Type: AssertRequestFailed, Request: "Missing"},
		{Type: AssertUnitContains, Unit: "Ns", Names: []string{"Ns.B"}},
		{Type: AssertUnitCount, Count: 2},
		{Type: AssertFileContains, File: "Ns.go", Text: "type A struct"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"contains", Assertion{Type: AssertResolvedContains, Names: []string{"Ns.Z"}}, "missing [Ns.Z]"},
		{"excludes", Assertion{Type: AssertResolvedExcludes, Names: []string{"Ns.B"}}, "found [Ns.B]"},
		{"order reversed", Assertion{Type: AssertResolvedOrder, Names: []string{"Other.C", "Ns.A"}}, "before its predecessor"},
		{"order missing", Assertion{Type: AssertResolvedOrder, Names: []string{"Ns.A", "Ns.Z"}}, "Ns.Z not resolved"},
		{"count", Assertion{Type: AssertResolvedCount, Count: 1}, "3 declarations"},
		{"request", Assertion{Type: AssertRequestFailed, Request: "Ns.A"}, `request "Ns.A" not resolved`},
		{"unit names", Assertion{Type: AssertUnitContains, Unit: "Other", Names: []string{"Ns.A"}}, "unit holds [Other.C]"},
		{"unit missing", Assertion{Type: AssertUnitContains, Unit: "Gone", Names: []string{"Ns.A"}}, "units [Ns Other]"},
		{"unit count", Assertion{Type: AssertUnitCount, Count: 1}, "2 units"},
		{"file missing", Assertion{Type: AssertFileContains, File: "Gone.go", Text: "x"}, "files [Ns.go]"},
		{"file text", Assertion{Type: AssertFileContains, File: "Ns.go", Text: "type B"}, "text not found"},
		{"unknown", Assertion{Type: "final_state"}, `unknown assertion type "final_state"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesClosure(t *testing.T) {
	err := &AssertionError{
		Type:     AssertResolvedCount,
		Expected: "1 declarations",
		Actual:   "2 declarations",
		Resolved: []string{"Ns.A", "Ns.B"},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: resolved_count")
	assert.Contains(t, msg, "[2] Ns.B")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
