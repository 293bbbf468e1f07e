package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/security"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
)

// newRunID names a results subdirectory after the command and start time.
func newRunID(command string, start time.Time) string {
	return fmt.Sprintf("%s-%s", command, start.UTC().Format("20060102T150405.000Z"))
}

func resolveResultsPath(resultsDir, runID string, parts ...string) (string, error) {
	return security.RunPath(resultsDir, runID, parts...)
}

func ensureResultsDir(resultsDir, runID string) (string, error) {
	path, err := resolveResultsPath(resultsDir, runID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}
	return path, nil
}
