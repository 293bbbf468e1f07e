package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/khanhnv2901/seca-headers/internal/security"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
)

type telemetryRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	Command             string    `json:"command"`
	RunID               string    `json:"run_id"`
	TargetCount         int       `json:"target_count"`
	SuccessCount        int       `json:"success_count"`
	ErrorCount          int       `json:"error_count"`
	SuccessRate         float64   `json:"success_rate"`
	MissingTotal        int       `json:"missing_total"`
	MisconfiguredTotal  int       `json:"misconfigured_total"`
	SensitiveTotal      int       `json:"sensitive_total"`
	DurationSeconds     float64   `json:"duration_seconds"`
	AvgDurationPerCheck float64   `json:"avg_duration_per_check"`
}

func newTelemetryRecord(runID, command string, results []checker.CheckResult, duration time.Duration) telemetryRecord {
	okCount, errorCount := summarizeStatuses(results)
	total := len(results)

	record := telemetryRecord{
		Timestamp:       time.Now().UTC(),
		Command:         command,
		RunID:           runID,
		TargetCount:     total,
		SuccessCount:    okCount,
		ErrorCount:      errorCount,
		DurationSeconds: duration.Seconds(),
	}
	if total > 0 {
		record.SuccessRate = (float64(okCount) / float64(total)) * 100
		record.AvgDurationPerCheck = duration.Seconds() / float64(total)
	}
	for _, r := range results {
		c := r.Headers.Counts()
		record.MissingTotal += c.Missing
		record.MisconfiguredTotal += c.Misconfigured
		record.SensitiveTotal += c.Sensitive
	}
	return record
}

// recordTelemetry appends one JSON line per run to <resultsDir>/telemetry.jsonl.
func recordTelemetry(appCtx *AppContext, runID string, command string, results []checker.CheckResult, duration time.Duration) error {
	data, err := json.Marshal(newTelemetryRecord(runID, command, results, duration))
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath, err := security.ResolveWithin(appCtx.ResultsDir, "telemetry.jsonl")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

func summarizeStatuses(results []checker.CheckResult) (okCount, errorCount int) {
	for _, r := range results {
		if r.Status == checker.StatusOK {
			okCount++
		} else {
			errorCount++
		}
	}
	return okCount, errorCount
}
