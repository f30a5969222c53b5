package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/testutil"
)

// Epoch is the frozen wall clock every scenario runs at.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// StepTimeout bounds each step so a hung backend fails the scenario instead
// of the test binary.
const StepTimeout = 5 * time.Second

// Options tunes Run.
type Options struct {
	Logger *zap.SugaredLogger
}

// Run executes a scenario against a fresh client and a canned backend.
//
// Every run is isolated: its own backend, cookie jar, logical clock, and
// flow tokens prefix-1, prefix-2, ... so traces are reproducible.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, Options{})
}

// RunWithOptions is Run with a logger.
func RunWithOptions(scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	be := newBackend(scenario.Routes)
	srv := be.start()
	defer srv.Close()

	location := scenario.Location
	if location == "" {
		location = "/"
	}

	rec := testutil.NewRecorder()
	a, err := app.New(app.Options{
		BaseURL:  srv.URL + APIRoot,
		Timeout:  StepTimeout,
		Location: func() string { return location },
		Recorder: rec,
		Clock:    engine.NewClock(),
		Flows:    testutil.NewSequentialFlowGenerator(scenario.FlowToken),
		Now:      testutil.NewFrozenTime(Epoch).Now,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build client: %w", err)
	}
	defer a.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		sr := executeStep(a, step)
		result.Steps = append(result.Steps, sr)
		if msg := checkStep(i, step, sr); msg != "" {
			result.AddError(msg)
		}
		logger.Debugw("scenario step", "scenario", scenario.Name, "step", i, "op", step.Op, "ok", sr.OK, "error", sr.Error)
	}

	result.Trace = rec.Events()
	result.Requests = be.seen()
	if err := captureState(a, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func executeStep(a *app.App, step Step) StepResult {
	ctx, cancel := context.WithTimeout(context.Background(), StepTimeout)
	defer cancel()

	_, err := a.Dispatch(ctx, step.Op, step.Args)
	if err != nil {
		return StepResult{Op: step.Op, Error: err.Error()}
	}
	return StepResult{Op: step.Op, OK: true}
}

func checkStep(i int, step Step, sr StepResult) string {
	switch {
	case step.Expect == ExpectOK && !sr.OK:
		return fmt.Sprintf("steps[%d] %s: expected ok, got error %q", i, step.Op, sr.Error)
	case step.Expect == ExpectError && sr.OK:
		return fmt.Sprintf("steps[%d] %s: expected error, got ok", i, step.Op)
	case step.Error != "" && sr.Error != step.Error:
		return fmt.Sprintf("steps[%d] %s: expected error %q, got %q", i, step.Op, step.Error, sr.Error)
	}
	return ""
}

// captureState stores each slice's state in its JSON form so assertions
// compare against what a client would serialise.
func captureState(a *app.App, result *Result) error {
	for name, st := range map[string]any{
		SliceSession: a.Session.State(),
		SliceStores:  a.Stores.State(),
	} {
		v, err := toJSONValue(st)
		if err != nil {
			return fmt.Errorf("capture %s state: %w", name, err)
		}
		result.State[name] = v
	}
	return nil
}

func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
