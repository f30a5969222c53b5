package harness

import (
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "dispatch" {
				fmt.Fprintf(&buf, "  [%d] %s %s %v\n", i+1, event.Flow, event.Op, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a dispatch of the op with
// matching args (subset match) and, when given, a matching outcome.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for i, event := range trace {
		if event.Type != "dispatch" || event.Op != assertion.Op {
			continue
		}
		if !matchArgs(event.Args, assertion.Args) {
			continue
		}
		if assertion.Outcome == "" || outcomeOf(trace[i+1:], event) == assertion.Outcome {
			return nil
		}
	}

	expected := fmt.Sprintf("op %s with args %v", assertion.Op, assertion.Args)
	if assertion.Outcome != "" {
		expected += " completing " + assertion.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// outcomeOf finds the completion of dispatch among the events after it.
func outcomeOf(after []TraceEvent, dispatch TraceEvent) string {
	for _, e := range after {
		if e.Type == "completion" && e.Op == dispatch.Op && e.Flow == dispatch.Flow {
			return e.Outcome
		}
	}
	return ""
}

// assertTraceOrder checks if ops are dispatched in the specified order.
// Ops don't need to be consecutive (intervening dispatches are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type != "dispatch" {
			continue
		}
		for _, expected := range assertion.Ops {
			if event.Op == expected && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev := assertion.Ops[i-1]
		curr := assertion.Ops[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the op is dispatched exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "dispatch" && event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d dispatches of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d dispatches", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertRequestCount checks how many requests the backend saw for a route.
func assertRequestCount(requests []Request, assertion Assertion) error {
	count := 0
	for _, r := range requests {
		if strings.EqualFold(r.Method, assertion.Method) && r.Path == assertion.Path {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRequestCount,
			Expected: fmt.Sprintf("%d requests to %s %s", assertion.Count, strings.ToUpper(assertion.Method), assertion.Path),
			Actual:   fmt.Sprintf("%d requests", count),
		}
	}
	return nil
}

// assertFinalState checks the slice's final JSON state against the expected
// subset. Keys are checked in sorted order so the first reported mismatch
// is stable.
func assertFinalState(state map[string]any, assertion Assertion) error {
	actual, ok := state[assertion.Slice].(map[string]any)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state for slice %q", assertion.Slice),
			Actual:   "no state captured",
		}
	}

	expected, err := toJSONValue(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: expected value: %w", err)
	}
	exp := expected.(map[string]any)

	keys := make([]string, 0, len(exp))
	for k := range exp {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s to exist", assertion.Slice, key),
				Actual:   "field not present",
			}
		}
		if path, ok := subsetMismatch(exp[key], got, key); ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Slice, path, lookupPath(exp, path)),
				Actual:   fmt.Sprintf("%s.%s = %v", assertion.Slice, path, lookupPath(actual, path)),
			}
		}
	}
	return nil
}

// subsetMismatch walks expected against actual and returns the dotted path
// of the first difference. Maps match when every expected key matches;
// slices must have the same length and match element-wise.
func subsetMismatch(expected, actual any, path string) (string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return path, true
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if p, bad := subsetMismatch(exp[k], act[k], path+"."+k); bad {
				return p, true
			}
		}
		return "", false
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return path, true
		}
		for i := range exp {
			if p, bad := subsetMismatch(exp[i], act[i], fmt.Sprintf("%s.%d", path, i)); bad {
				return p, true
			}
		}
		return "", false
	default:
		if expected != actual {
			return path, true
		}
		return "", false
	}
}

func lookupPath(v any, path string) any {
	for _, part := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			v = node[part]
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

// matchArgs checks if actual args contain all expected args (subset match).
// Both sides are compared in their JSON form, so 7 and int64(7) match.
func matchArgs(actual map[string]any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	a, err := toJSONValue(actual)
	if err != nil {
		return false
	}
	e, err := toJSONValue(expected)
	if err != nil {
		return false
	}
	am, ok := a.(map[string]any)
	if !ok {
		return false
	}
	_, bad := subsetMismatch(e, am, "args")
	return !bad
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertRequestCount:
			err = assertRequestCount(result.Requests, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
