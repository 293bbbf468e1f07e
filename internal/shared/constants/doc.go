// Package constants centralizes defaults shared across the CLI and the checkers.
//
// File permissions, body capture limits, and probe timeouts live here so cmd/
// and internal/ reference the same values without import cycles.
package constants
