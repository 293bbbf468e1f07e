package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	errs "github.com/khanhnv2901/seca-headers/internal/shared/errors"
	"github.com/spf13/cobra"
)

const (
	jsonPrefix = ""
	jsonIndent = "  "
)

type RunMetadata struct {
	RunID        string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Operator     string    `json:"operator" yaml:"operator"`
	Command      string    `json:"command" yaml:"command"`
	Source       string    `json:"source,omitempty" yaml:"source,omitempty"`
	StartAt      time.Time `json:"started_at" yaml:"started_at"`
	CompleteAt   time.Time `json:"completed_at" yaml:"completed_at"`
	AuditHash    string    `json:"audit_sha256,omitempty" yaml:"audit_sha256,omitempty"`
	TotalTargets int       `json:"total_targets" yaml:"total_targets"`
}

type RunOutput struct {
	Metadata RunMetadata           `json:"metadata" yaml:"metadata"`
	Results  []checker.CheckResult `json:"results" yaml:"results"`
}

// runOptions describes one multi-target invocation of a checker.
type runOptions struct {
	command  string
	targets  []string
	checker  checker.Checker
	save     bool
	saveRaw  bool
	progress bool

	// unbounded drops the Runner's per-target deadline for checkers that
	// issue many requests, each already bounded by its own timeout.
	unbounded bool
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("concurrency", 1, "max concurrent targets")
	cmd.Flags().Int("rate-limit", 1, "requests per second across all workers (0 = unlimited)")
	cmd.Flags().Bool("save", false, "write results.json, its .sha256 and audit.csv under results_dir/<run-id>/")
	cmd.Flags().Bool("progress", false, "show a live progress line on stderr")
}

func requestTimeout(cmd *cobra.Command) time.Duration {
	secs, _ := cmd.Flags().GetInt("timeout")
	if secs <= 0 {
		secs = defaultHTTPTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

func userAgent() string {
	if cliConfig.Defaults.UserAgent != "" {
		return cliConfig.Defaults.UserAgent
	}
	return consts.DefaultUserAgent
}

// signalContext cancels in-flight checks on SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func cleanTargets(args []string) ([]string, error) {
	targets := make([]string, 0, len(args))
	for _, a := range args {
		if t := strings.TrimSpace(a); t != "" {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, errs.ErrEmptyTarget
	}
	return targets, nil
}

// executeRun fans the targets out through checker.Runner, auditing and
// persisting each result when --save is set.
func executeRun(cmd *cobra.Command, opts runOptions) (*RunOutput, error) {
	appCtx := getAppContext(cmd)
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	rateLimit, _ := cmd.Flags().GetInt("rate-limit")

	start := time.Now()
	runID := ""
	if opts.save {
		runID = newRunID(opts.command, start)
		if _, err := ensureResultsDir(appCtx.ResultsDir, runID); err != nil {
			return nil, err
		}
	}

	var printer *progressPrinter
	if opts.progress {
		printer = newProgressPrinter(len(opts.targets), strings.ToUpper(opts.command))
		printer.Start()
	}

	auditFn := func(target string, result checker.CheckResult, duration float64) error {
		appCtx.Logger.Debugw("check complete",
			"command", opts.command,
			"target", target,
			"status", result.Status,
			"duration_seconds", duration)
		if printer != nil {
			printer.Increment(result.Status == checker.StatusOK, duration)
		}
		if !opts.save {
			return nil
		}
		if err := AppendAuditRow(appCtx.ResultsDir, runID, appCtx.Operator, opts.command, result, duration); err != nil {
			appCtx.Logger.Warnw("audit write failed", "target", target, "error", err)
			return err
		}
		if opts.saveRaw {
			if path, err := SaveRawCapture(appCtx.ResultsDir, runID, result); err != nil {
				appCtx.Logger.Warnw("raw capture failed", "target", target, "error", err)
			} else if path != "" {
				appCtx.Logger.Debugw("raw capture saved", "target", target, "path", path)
			}
		}
		return nil
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	runner := &checker.Runner{
		Concurrency: concurrency,
		RateLimit:   rateLimit,
		Timeout:     requestTimeout(cmd),
	}
	if opts.unbounded {
		runner.Timeout = 0
	}
	results := runner.RunChecks(ctx, opts.targets, opts.checker, auditFn)

	if printer != nil {
		printer.Stop()
	}

	output := &RunOutput{
		Metadata: RunMetadata{
			RunID:    runID,
			Operator: appCtx.Operator,
			Command:  opts.command,
			StartAt:  start.UTC(),
		},
		Results: results,
	}

	for _, r := range results {
		if r.Status == checker.StatusError {
			appCtx.Logger.Warnw("check failed", "target", r.Target, "error", r.Error)
		}
	}

	if opts.save {
		resultsPath, err := writeResultsAndHash(appCtx, output)
		if err != nil {
			return output, err
		}
		if err := recordTelemetry(appCtx, runID, opts.command, results, time.Since(start)); err != nil {
			appCtx.Logger.Warnw("telemetry write failed", "error", err)
		}
		appCtx.Logger.Infow("results saved", "run_id", runID, "path", resultsPath)
	} else {
		output.Metadata.CompleteAt = time.Now().UTC()
		output.Metadata.TotalTargets = len(results)
	}

	return output, nil
}

// writeResultsAndHash writes results.json with the audit.csv hash embedded,
// then writes a .sha256 companion for results.json itself.
func writeResultsAndHash(appCtx *AppContext, output *RunOutput) (string, error) {
	runID := output.Metadata.RunID
	output.Metadata.CompleteAt = time.Now().UTC()
	output.Metadata.TotalTargets = len(output.Results)

	auditPath, err := resolveResultsPath(appCtx.ResultsDir, runID, "audit.csv")
	if err != nil {
		return "", fmt.Errorf("resolve audit path: %w", err)
	}
	if _, err := os.Stat(auditPath); err == nil {
		auditHash, err := HashFileSHA256(auditPath)
		if err != nil {
			return "", fmt.Errorf("failed to hash audit file: %w", err)
		}
		output.Metadata.AuditHash = auditHash
	}

	resultsPath, err := resolveResultsPath(appCtx.ResultsDir, runID, "results.json")
	if err != nil {
		return "", fmt.Errorf("resolve results path: %w", err)
	}
	b, err := json.MarshalIndent(output, jsonPrefix, jsonIndent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultsPath, b, consts.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	if _, err := HashFileSHA256(resultsPath); err != nil {
		return "", fmt.Errorf("failed to hash results file: %w", err)
	}
	return resultsPath, nil
}
