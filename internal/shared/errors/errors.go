package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrEmptyTarget         = errors.New("target cannot be empty")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrMalformedHeaderLine = errors.New("malformed header line")

	// Check errors
	ErrFetchFailed        = errors.New("fetch failed")
	ErrBrowserUnavailable = errors.New("browser probe unavailable")
	ErrFindingsThreshold  = errors.New("findings exceed configured threshold")

	// Filesystem errors
	ErrPathEscape   = errors.New("path escapes base directory")
	ErrInvalidRunID = errors.New("invalid run ID")
)
