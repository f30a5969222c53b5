package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where RunWithGolden keeps its fixtures, relative to the
// test's package directory.
const GoldenDir = "testdata/golden"

// TraceSnapshot captures what a golden file pins down for a scenario: the
// journal trace and the requests the backend saw, in order.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Requests     []Request    `json:"requests"`
}

// Snapshot renders the golden form of a result: indented JSON with a
// trailing newline. encoding/json sorts map keys, so the bytes are stable.
func Snapshot(name string, result *Result) ([]byte, error) {
	data, err := json.MarshalIndent(TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Requests:     result.Requests,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
