package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
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
	Filter string // glob over scenario base names
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult summarizes a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run scenario files against an in-memory storefront.

Each scenario runs with fresh databases and a mock clock. Its assertions
are checked and, when golden/<name>.golden exists next to the scenario,
its trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  storefront test ./scenarios
  storefront test ./scenarios --filter "favorites_*"
  storefront test ./scenarios --update
  storefront test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	r := &scenarioRunner{update: opts.Update}
	if opts.Format != "json" {
		r.log = cmd.OutOrStdout()
	}

	if len(files) == 0 && r.log != nil {
		fmt.Fprintln(r.log, "No scenarios found.")
		return nil
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, f := range files {
		result.add(r.run(f))
	}

	if opts.Format == "json" {
		return writeTestJSON(cmd.OutOrStdout(), result)
	}
	return writeTestSummary(cmd.OutOrStdout(), result)
}

// findScenarioFiles lists .yaml and .yml files under dir, keeping those
// whose base name without extension matches filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scenarioRunner runs scenario files one at a time. log is nil in JSON mode.
type scenarioRunner struct {
	update bool
	log    io.Writer
}

func (r *scenarioRunner) run(file string) ScenarioResult {
	s, err := harness.LoadScenario(file)
	if err != nil {
		return r.fail(filepath.Base(file), "Load error: ", err.Error())
	}

	res, err := harness.Run(s)
	if err != nil {
		return r.fail(s.Name, "Execution error: ", err.Error())
	}
	trace, err := harness.MarshalTrace(s.Name, res)
	if err != nil {
		return r.fail(s.Name, "Trace error: ", err.Error())
	}

	path := goldenFilePath(file)
	note := ""
	if r.update {
		if err := writeGoldenFile(path, trace); err != nil {
			return r.fail(s.Name, "Golden update error: ", err.Error())
		}
		note = " (golden updated)"
	} else if golden, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(golden, trace) {
			if r.log != nil {
				fmt.Fprintf(r.log, "✗ %s\n  Golden file mismatch (run with --update to regenerate)\n", s.Name)
			}
			return ScenarioResult{Name: s.Name, Errors: []string{"trace does not match golden file"}}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return r.fail(s.Name, "Golden comparison error: ", err.Error())
	}

	if !res.Pass {
		return r.fail(s.Name, "", res.Errors...)
	}
	if r.log != nil {
		fmt.Fprintf(r.log, "✓ %s%s\n", s.Name, note)
	}
	return ScenarioResult{Name: s.Name, Pass: true}
}

func (r *scenarioRunner) fail(name, label string, errs ...string) ScenarioResult {
	if r.log != nil {
		fmt.Fprintf(r.log, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(r.log, "  %s%s\n", label, e)
		}
	}
	return ScenarioResult{Name: name, Errors: errs}
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGoldenFile(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, trace, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

func testFailure(result TestResult) error {
	if result.Failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
}

func writeTestJSON(w io.Writer, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	return testFailure(result)
}

func writeTestSummary(w io.Writer, result TestResult) error {
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if err := testFailure(result); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
