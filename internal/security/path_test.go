package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{id: "headers-20240501T120000.000Z"},
		{id: "clickjack-20240501T120000.000Z"},
		{id: "", wantErr: true},
		{id: ".", wantErr: true},
		{id: "..", wantErr: true},
		{id: "../headers-1", wantErr: true},
		{id: `headers\1`, wantErr: true},
	}
	for _, tt := range tests {
		err := ValidateRunID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRunID(%q) err = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("ValidateRunID(%q) should wrap ErrInvalidRunID, got %v", tt.id, err)
		}
	}
}

func TestRunPath_RunArtifacts(t *testing.T) {
	resultsDir := t.TempDir()
	runID := "headers-20240501T120000.000Z"

	for _, name := range []string{"results.json", "results.json.sha256", "audit.csv", "audit.csv.sha256", "raw_1714564800000000000.txt"} {
		got, err := RunPath(resultsDir, runID, name)
		if err != nil {
			t.Fatalf("RunPath(%q) returned error: %v", name, err)
		}
		if want := filepath.Join(resultsDir, runID, name); got != want {
			t.Errorf("RunPath(%q) = %s, want %s", name, got, want)
		}
	}

	dir, err := RunPath(resultsDir, runID)
	if err != nil {
		t.Fatalf("RunPath without parts: %v", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("run directory not creatable: %v", err)
	}
}

func TestRunPath_CannotReachOtherRuns(t *testing.T) {
	resultsDir := t.TempDir()

	tests := []struct {
		name  string
		runID string
		parts []string
		want  error
	}{
		{name: "sibling run", runID: "headers-1", parts: []string{"..", "headers-2", "results.json"}, want: ErrPathEscape},
		{name: "results dir itself", runID: "headers-1", parts: []string{"..", "telemetry.jsonl"}, want: ErrPathEscape},
		{name: "outside results dir", runID: "headers-1", parts: []string{"..", "..", "etc", "passwd"}, want: ErrPathEscape},
		{name: "capture name with traversal", runID: "headers-1", parts: []string{"../../capture.txt"}, want: ErrPathEscape},
		{name: "run id traversal", runID: "../headers-1", parts: []string{"audit.csv"}, want: ErrInvalidRunID},
		{name: "empty run id", runID: "", parts: []string{"audit.csv"}, want: ErrInvalidRunID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunPath(resultsDir, tt.runID, tt.parts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunPath_AbsoluteNameStaysInRun(t *testing.T) {
	resultsDir := t.TempDir()

	got, err := RunPath(resultsDir, "headers-1", "/tmp/capture.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(resultsDir, "headers-1", "tmp", "capture.txt"); got != want {
		t.Errorf("absolute name resolved to %s, want %s", got, want)
	}
}

func TestResolveWithin_TelemetryFile(t *testing.T) {
	resultsDir := t.TempDir()

	got, err := ResolveWithin(resultsDir, "telemetry.jsonl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join(resultsDir, "telemetry.jsonl") {
		t.Errorf("unexpected telemetry path %s", got)
	}

	if _, err := ResolveWithin("", "telemetry.jsonl"); !errors.Is(err, ErrPathEscape) {
		t.Errorf("empty results dir should be rejected, got %v", err)
	}
}

func TestResolveWithin_RelativeResultsDir(t *testing.T) {
	t.Chdir(t.TempDir())

	got, err := ResolveWithin("results", "headers-1", "audit.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected an absolute path, got %s", got)
	}
}
