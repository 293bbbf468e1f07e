package cmd

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/security"
)

func TestNewRunID(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 30, 45, 123_000_000, time.FixedZone("X", 3600))
	if got := newRunID("headers", start); got != "headers-20240501T113045.123Z" {
		t.Errorf("newRunID = %q", got)
	}
}

func TestResolveResultsPath(t *testing.T) {
	base := t.TempDir()

	got, err := resolveResultsPath(base, "run-1", "audit.csv")
	if err != nil {
		t.Fatalf("resolveResultsPath: %v", err)
	}
	if got != filepath.Join(base, "run-1", "audit.csv") {
		t.Errorf("unexpected path %q", got)
	}

	_, err = resolveResultsPath(base, "run-1", "..", "..", "etc")
	if !errors.Is(err, security.ErrPathEscape) {
		t.Errorf("expected ErrPathEscape, got %v", err)
	}

	_, err = ensureResultsDir(base, "..")
	if !errors.Is(err, security.ErrInvalidRunID) {
		t.Errorf("expected ErrInvalidRunID, got %v", err)
	}
}
