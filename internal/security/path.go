// Package security confines every file seca-headers writes to the results
// directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/khanhnv2901/seca-headers/internal/shared/errors"
)

var (
	// ErrPathEscape indicates the resolved path would leave the results directory.
	ErrPathEscape = errs.ErrPathEscape
	// ErrInvalidRunID indicates a run ID that cannot name a results subdirectory.
	ErrInvalidRunID = errs.ErrInvalidRunID
)

// ValidateRunID rejects run IDs that are empty, reserved, or contain a path
// separator. Run IDs become directory names under results_dir.
func ValidateRunID(id string) error {
	switch id {
	case "":
		return fmt.Errorf("%w: run ID is required", ErrInvalidRunID)
	case ".", "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidRunID, id)
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidRunID, id)
	}
	return nil
}

// RunPath resolves <resultsDir>/<runID>/<parts...>. The run ID is validated
// and the result must stay inside the run directory, so a file name taken
// from a capture or target can never reach a sibling run.
func RunPath(resultsDir, runID string, parts ...string) (string, error) {
	if err := ValidateRunID(runID); err != nil {
		return "", err
	}
	runDir, err := ResolveWithin(resultsDir, runID)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return runDir, nil
	}
	return ResolveWithin(runDir, parts...)
}

// ResolveWithin joins elems under base and returns the absolute path, or
// ErrPathEscape when the result would leave base.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("%w: results directory is required", ErrPathEscape)
	}

	root, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve results directory: %w", err)
	}

	target := filepath.Join(append([]string{root}, elems...)...)
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}
	return target, nil
}
