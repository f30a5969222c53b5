package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "missing"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run scenario files against a canned backend",
		Long: `Run scenario files against a canned backend.

Each scenario runs on a fresh client with deterministic flow tokens and
a logical clock starting at zero, so its trace is reproducible. The trace
and the requests the backend saw are compared with golden/<name>.golden
next to the scenarios directory when that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  storefront test ./scenarios
  storefront test ./scenarios --filter "login*"
  storefront test ./scenarios --update
  storefront test ./scenarios/login_logout.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	var scenarioFiles []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
		}
		files, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		scenarioFiles = append(scenarioFiles, files...)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	// Run scenarios
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts)
		if opts.Format != "json" {
			printScenarioResult(cmd.OutOrStdout(), scenResult)
		}
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}

	return outputTestText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files under path, or path itself
// when it is a file.
func findScenarioFiles(path string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		// Apply filter if specified
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(scenarioFile),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to render trace: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(scenarioFile, scenario.Name)

	// Handle golden file comparison
	if opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return sr
		}
		sr.Golden = "updated"
		return sr
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file - assertion-based validation only
		sr.Golden = "missing"
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, snapshot):
		sr.Pass = false
		sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
	default:
		sr.Golden = "match"
	}
	return sr
}

// goldenFilePath returns the golden file for a scenario: a golden directory
// next to the one holding the scenario, as in testdata/scenarios and
// testdata/golden.
func goldenFilePath(scenarioFile, name string) string {
	dir := filepath.Dir(filepath.Dir(scenarioFile))
	return filepath.Join(dir, "golden", name+".golden")
}

// writeGoldenFile writes the current snapshot as the golden file.
func writeGoldenFile(goldenPath string, snapshot []byte) error {
	// Ensure golden directory exists
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}

	return nil
}

func printScenarioResult(w io.Writer, sr ScenarioResult) {
	if !sr.Pass {
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if sr.Golden == "updated" {
		fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", sr.Name)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    CodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
