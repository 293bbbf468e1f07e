package cmd

import (
	"errors"
	"fmt"
	"strings"

	errs "github.com/khanhnv2901/seca-headers/internal/shared/errors"
)

const (
	exitFailure  = 1
	exitFindings = 2
)

// UnsupportedFormatError reports an unknown --format or --input-format value.
type UnsupportedFormatError struct {
	Format  string
	Allowed []string
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("unsupported format %q", e.Format)
	}
	return fmt.Sprintf("unsupported format %q (must be one of: %s)", e.Format, strings.Join(e.Allowed, ", "))
}

func (e *UnsupportedFormatError) Unwrap() error { return errs.ErrUnsupportedFormat }

// FetchError wraps a failure to retrieve a target.
type FetchError struct {
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Target, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FindingsThresholdError signals that a --fail-on category produced findings.
type FindingsThresholdError struct {
	Categories map[string]int
}

func (e *FindingsThresholdError) Error() string {
	parts := make([]string, 0, len(e.Categories))
	for _, name := range failOnCategories {
		if n, ok := e.Categories[name]; ok && n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, n))
		}
	}
	return fmt.Sprintf("findings exceed threshold: %s", strings.Join(parts, ", "))
}

func (e *FindingsThresholdError) Unwrap() error { return errs.ErrFindingsThreshold }

// exitCodeFor keeps threshold failures distinguishable from operational errors in CI.
func exitCodeFor(err error) int {
	var threshold *FindingsThresholdError
	if errors.As(err, &threshold) {
		return exitFindings
	}
	return exitFailure
}
