// Package harness runs conformance scenarios against a real storefront
// client talking to a canned backend.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	flow_token: flow          # optional prefix, tokens are flow-1, flow-2, ...
//	location: /dashboard      # optional current route
//	routes:
//	  - method: POST
//	    path: /auth/login
//	    status: 200
//	    body: { success: true, data: { message: "Logged in" } }
//	steps:
//	  - op: auth/login
//	    args: { email: ada@example.com, password: secret1 }
//	    expect: ok
//	assertions:
//	  - type: trace_order
//	    ops: [auth/login, auth/getCurrentUser]
//	  - type: final_state
//	    slice: session
//	    expect: { isAuthenticated: true }
//
// # Assertion Types
//
//   - trace_contains: an op was dispatched with matching args (and outcome)
//   - trace_order: ops were dispatched in the given order
//   - trace_count: an op was dispatched exactly N times
//   - request_count: the backend saw exactly N requests for a route
//   - final_state: a slice's JSON state contains the expected subset
//
// # Deterministic Testing
//
// Each run gets its own httptest backend, cookie jar, logical clock and
// sequential flow tokens, with the wall clock frozen at Epoch. Steps run one
// after another, so traces are reproducible and can be pinned in golden
// files under testdata/golden.
package harness
