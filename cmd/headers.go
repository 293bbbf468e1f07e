package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/khanhnv2901/seca-headers/internal/headers"
	errs "github.com/khanhnv2901/seca-headers/internal/shared/errors"
	"github.com/spf13/cobra"
)

const (
	failOnMissing       = "missing"
	failOnMisconfigured = "misconfigured"
	failOnSensitive     = "sensitive"
)

var failOnCategories = []string{failOnMissing, failOnMisconfigured, failOnSensitive}

var inputFormats = []string{headers.FormatRaw, headers.FormatJSON, headers.FormatYAML}

var headersCmd = &cobra.Command{
	Use:   "headers [targets...]",
	Short: "Classify the HTTP security headers of one or more targets",
	Long: `Fetch each target and classify its response headers into missing,
misconfigured and sensitive findings.

With --input the headers are read from a capture file instead (raw
"Name: value" lines as printed by curl -sI, or a JSON/YAML list of
{name, value} objects). Use "-" to read from stdin.`,
	Example: `  seca-headers headers https://example.com
  curl -sI https://example.com | seca-headers headers --input -
  seca-headers headers --fail-on missing,misconfigured example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		failOn, _ := cmd.Flags().GetStringSlice("fail-on")

		categories, err := parseFailOn(failOn)
		if err != nil {
			return err
		}

		var output *RunOutput
		if input != "" {
			if len(args) > 0 {
				return fmt.Errorf("--input cannot be combined with target arguments")
			}
			inputFormat, _ := cmd.Flags().GetString("input-format")
			output, err = classifyInput(cmd, input, inputFormat)
		} else {
			output, err = runHeaderChecks(cmd, args)
		}
		if err != nil {
			return err
		}

		if err := writeReport(cmd, output); err != nil {
			return err
		}
		if err := allFailed(output.Results); err != nil {
			return err
		}
		return evaluateFailOn(output.Results, categories)
	},
}

func runHeaderChecks(cmd *cobra.Command, args []string) (*RunOutput, error) {
	targets, err := cleanTargets(args)
	if err != nil {
		return nil, err
	}
	fingerprint, _ := cmd.Flags().GetBool("fingerprint")
	save, _ := cmd.Flags().GetBool("save")
	saveRaw, _ := cmd.Flags().GetBool("save-raw")
	progress, _ := cmd.Flags().GetBool("progress")

	return executeRun(cmd, runOptions{
		command: "headers",
		targets: targets,
		checker: &checker.HeaderChecker{
			Timeout:     requestTimeout(cmd),
			UserAgent:   userAgent(),
			Fingerprint: fingerprint,
		},
		save:     save,
		saveRaw:  saveRaw,
		progress: progress,
	})
}

// classifyInput runs the classifier over an offline header capture.
func classifyInput(cmd *cobra.Command, path, format string) (*RunOutput, error) {
	appCtx := getAppContext(cmd)
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "yml" {
		format = headers.FormatYAML
	}
	if !slices.Contains(inputFormats, format) {
		return nil, &UnsupportedFormatError{Format: format, Allowed: inputFormats}
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	start := time.Now().UTC()
	entries, err := headers.Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	appCtx.Logger.Debugw("classifying capture", "input", path, "format", format, "headers", len(entries))

	result := checker.CheckResult{
		Target:       path,
		CheckedAt:    start,
		Status:       checker.StatusOK,
		Headers:      headers.Classify(entries),
		Misspellings: headers.DetectMisspellings(entries),
		Cookies:      checker.AnalyzeCookies(headers.ToHTTPHeader(entries)),
	}

	return &RunOutput{
		Metadata: RunMetadata{
			Operator:     appCtx.Operator,
			Command:      "headers",
			Source:       path,
			StartAt:      start,
			CompleteAt:   time.Now().UTC(),
			TotalTargets: 1,
		},
		Results: []checker.CheckResult{result},
	}, nil
}

func parseFailOn(values []string) (map[string]bool, error) {
	selected := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if !slices.Contains(failOnCategories, v) {
			return nil, fmt.Errorf("invalid --fail-on category %q (must be one of: %s)", v, strings.Join(failOnCategories, ", "))
		}
		selected[v] = true
	}
	return selected, nil
}

// evaluateFailOn returns a FindingsThresholdError when any selected category
// has findings in any result.
func evaluateFailOn(results []checker.CheckResult, selected map[string]bool) error {
	if len(selected) == 0 {
		return nil
	}
	totals := make(map[string]int)
	for _, r := range results {
		c := r.Headers.Counts()
		if selected[failOnMissing] {
			totals[failOnMissing] += c.Missing
		}
		if selected[failOnMisconfigured] {
			totals[failOnMisconfigured] += c.Misconfigured
		}
		if selected[failOnSensitive] {
			totals[failOnSensitive] += c.Sensitive
		}
	}
	for _, n := range totals {
		if n > 0 {
			return &FindingsThresholdError{Categories: totals}
		}
	}
	return nil
}

// allFailed reports a FetchError when no target could be checked at all.
func allFailed(results []checker.CheckResult) error {
	if len(results) == 0 {
		return nil
	}
	for _, r := range results {
		if r.Status != checker.StatusError {
			return nil
		}
	}
	first := results[0]
	return &FetchError{Target: first.Target, Err: fmt.Errorf("%w: %s", errs.ErrFetchFailed, first.Error)}
}

func init() {
	headersCmd.Flags().String("input", "", "classify a header capture file instead of fetching targets (\"-\" for stdin)")
	headersCmd.Flags().String("input-format", headers.FormatRaw, "capture format: raw, json, yaml")
	headersCmd.Flags().Bool("fingerprint", false, "identify server technologies from the response")
	headersCmd.Flags().StringSlice("fail-on", nil, "exit non-zero when findings exist: missing, misconfigured, sensitive")
	headersCmd.Flags().Bool("save-raw", false, "with --save, also write each response's headers as a raw capture")
	addRunFlags(headersCmd)
}
