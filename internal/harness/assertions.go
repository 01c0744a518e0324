package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Resolved []string // closure for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Resolved) > 0 {
		fmt.Fprintf(&buf, "\nResolved:\n")
		for i, name := range e.Resolved {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, name)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResolvedContains:
			err = assertResolvedContains(result, assertion)
		case AssertResolvedExcludes:
			err = assertResolvedExcludes(result, assertion)
		case AssertResolvedOrder:
			err = assertResolvedOrder(result, assertion)
		case AssertResolvedCount:
			err = assertResolvedCount(result, assertion)
		case AssertRequestFailed:
			err = assertRequestFailed(result, assertion)
		case AssertUnitContains:
			err = assertUnitContains(result, assertion)
		case AssertUnitCount:
			err = assertUnitCount(result, assertion)
		case AssertFileContains:
			err = assertFileContains(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertResolvedContains(result *Result, a Assertion) error {
	var missing []string
	for _, name := range a.Names {
		if !slices.Contains(result.Resolved, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("closure contains %v", a.Names),
		Actual:   fmt.Sprintf("missing %v", missing),
		Resolved: result.Resolved,
	}
}

func assertResolvedExcludes(result *Result, a Assertion) error {
	var present []string
	for _, name := range a.Names {
		if slices.Contains(result.Resolved, name) {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("closure excludes %v", a.Names),
		Actual:   fmt.Sprintf("found %v", present),
		Resolved: result.Resolved,
	}
}

// assertResolvedOrder checks relative order. Other names may appear in
// between.
func assertResolvedOrder(result *Result, a Assertion) error {
	last := -1
	for _, name := range a.Names {
		pos := slices.Index(result.Resolved, name)
		if pos < 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("order %v", a.Names),
				Actual:   fmt.Sprintf("%s not resolved", name),
				Resolved: result.Resolved,
			}
		}
		if pos < last {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("order %v", a.Names),
				Actual:   fmt.Sprintf("%s resolved at position %d, before its predecessor", name, pos+1),
				Resolved: result.Resolved,
			}
		}
		last = pos
	}
	return nil
}

func assertResolvedCount(result *Result, a Assertion) error {
	if len(result.Resolved) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d declarations", a.Count),
		Actual:   fmt.Sprintf("%d declarations", len(result.Resolved)),
		Resolved: result.Resolved,
	}
}

func assertRequestFailed(result *Result, a Assertion) error {
	if slices.Contains(result.Failures, a.Request) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("request %q not resolved", a.Request),
		Actual:   fmt.Sprintf("failed requests %v", result.Failures),
	}
}

func assertUnitContains(result *Result, a Assertion) error {
	for _, u := range result.Units {
		if u.Name != a.Unit {
			continue
		}
		var missing []string
		for _, name := range a.Names {
			if !slices.Contains(u.Names, name) {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("unit %s contains %v", a.Unit, a.Names),
			Actual:   fmt.Sprintf("unit holds %v", u.Names),
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("unit %s exists", a.Unit),
		Actual:   fmt.Sprintf("units %v", unitNames(result.Units)),
	}
}

func assertUnitCount(result *Result, a Assertion) error {
	if len(result.Units) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d units", a.Count),
		Actual:   fmt.Sprintf("%d units %v", len(result.Units), unitNames(result.Units)),
	}
}

func assertFileContains(result *Result, a Assertion) error {
	data, ok := result.Files[a.File]
	if !ok {
		names := make([]string, 0, len(result.Files))
		for name := range result.Files {
			names = append(names, name)
		}
		slices.Sort(names)
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("file %s emitted", a.File),
			Actual:   fmt.Sprintf("files %v", names),
		}
	}
	if bytes.Contains(data, []byte(a.Text)) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("file %s contains %q", a.File, a.Text),
		Actual:   "text not found",
	}
}

func unitNames(units []UnitResult) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Name
	}
	return out
}
