package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storefront/internal/app"
)

// Scenario defines a conformance test scenario: a canned backend, a sequence
// of operations against a fresh client, and assertions on the resulting
// trace, requests and final slice state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FlowToken prefixes the deterministic flow tokens (prefix-1,
	// prefix-2, ...). Defaults to "flow".
	FlowToken string `yaml:"flow_token,omitempty"`

	// Location is the route the user is on, for the unauthenticated
	// redirect guard. Defaults to "/".
	Location string `yaml:"location,omitempty"`

	// Routes are the canned backend responses.
	Routes []Route `yaml:"routes,omitempty"`

	// Steps are dispatched in order, each after the previous returned.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace, requests and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Route is one canned backend response. Several routes with the same method
// and path are served in order; the last one repeats.
type Route struct {
	Method string `yaml:"method"`
	// Path is relative to the API root, e.g. /auth/login.
	Path   string `yaml:"path"`
	Status int    `yaml:"status,omitempty"`
	// Body is encoded as JSON. A nil body sends no content.
	Body any `yaml:"body,omitempty"`
	// SetCookie, when set, is sent as a Set-Cookie header.
	SetCookie string `yaml:"set_cookie,omitempty"`
}

// Step dispatches one operation.
type Step struct {
	// Op is an operation name accepted by app.Dispatch.
	Op string `yaml:"op"`

	Args map[string]any `yaml:"args,omitempty"`

	// Expect is "ok" or "error". Empty means the outcome is not checked.
	Expect string `yaml:"expect,omitempty"`

	// Error, when set, must equal the returned error's message.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates trace, requests or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are expected dispatch args, subset match (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Outcome, when set, must match the op's completion (trace_contains).
	Outcome string `yaml:"outcome,omitempty"`

	// Ops is the expected dispatch order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of dispatches or requests.
	Count int `yaml:"count,omitempty"`

	// Slice is "session" or "stores" (final_state).
	Slice string `yaml:"slice,omitempty"`

	// Expect is a subset of the slice's JSON state (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Method and Path select requests (request_count).
	Method string `yaml:"method,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRequestCount  = "request_count"
)

// Step outcomes.
const (
	ExpectOK    = "ok"
	ExpectError = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Routes {
		if r.Method == "" {
			return fmt.Errorf("routes[%d]: method is required", i)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("routes[%d]: path must start with /", i)
		}
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			return fmt.Errorf("routes[%d]: status %d out of range", i, r.Status)
		}
	}

	known := make(map[string]bool)
	for _, op := range app.Ops() {
		known[op] = true
	}
	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !known[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		switch step.Expect {
		case "", ExpectOK, ExpectError:
		default:
			return fmt.Errorf("steps[%d]: expect must be %q or %q", i, ExpectOK, ExpectError)
		}
		if step.Error != "" && step.Expect == ExpectOK {
			return fmt.Errorf("steps[%d]: error message given for a step expected to succeed", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Slice != SliceSession && a.Slice != SliceStores {
			return fmt.Errorf("assertions[%d]: slice must be %q or %q for final_state", index, SliceSession, SliceStores)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRequestCount:
		if a.Method == "" || a.Path == "" {
			return fmt.Errorf("assertions[%d]: method and path are required for request_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for request_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
