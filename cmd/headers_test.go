package cmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	errs "github.com/khanhnv2901/seca-headers/internal/shared/errors"
)

func writeCapture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	return path
}

func TestHeadersCommand_InputJSONOutput(t *testing.T) {
	capture := writeCapture(t, "capture.txt", `HTTP/1.1 200 OK
X-Frame-Options: DENY
Strict Transport Security: max-age=100
Server: nginx/1.18
`)

	out, err := executeCommand(t, "headers", "--input", capture, "--format", "json")
	if err != nil {
		t.Fatalf("headers --input failed: %v", err)
	}

	var output RunOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if output.Metadata.Source != capture || output.Metadata.Operator != "tester" {
		t.Errorf("unexpected metadata: %+v", output.Metadata)
	}
	if len(output.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(output.Results))
	}
	res := output.Results[0].Headers
	if len(res.All) != 3 {
		t.Errorf("expected 3 headers, got %d", len(res.All))
	}
	if len(res.Missing) != 7 {
		t.Errorf("expected 7 missing headers, got %d: %+v", len(res.Missing), res.Missing)
	}
	if len(res.SensitiveDisclosed) != 1 || res.SensitiveDisclosed[0].Value != "nginx/1.18" {
		t.Errorf("expected server disclosure, got %+v", res.SensitiveDisclosed)
	}
}

func TestHeadersCommand_FailOn(t *testing.T) {
	capture := writeCapture(t, "capture.json", `[{"name":"Server","value":"Apache"}]`)

	_, err := executeCommand(t, "headers", "--input", capture, "--input-format", "json", "--fail-on", "sensitive")
	var threshold *FindingsThresholdError
	if !errors.As(err, &threshold) {
		t.Fatalf("expected FindingsThresholdError, got %v", err)
	}
	if threshold.Categories["sensitive"] != 1 {
		t.Errorf("expected one sensitive finding, got %+v", threshold.Categories)
	}

	_, err = executeCommand(t, "headers", "--input", capture, "--input-format", "json", "--fail-on", "misconfigured")
	if err != nil {
		t.Fatalf("misconfigured gate should pass, got %v", err)
	}

	_, err = executeCommand(t, "headers", "--input", capture, "--input-format", "json", "--fail-on", "bogus")
	if err == nil || !strings.Contains(err.Error(), "invalid --fail-on") {
		t.Fatalf("expected invalid category error, got %v", err)
	}
}

func TestHeadersCommand_InputErrors(t *testing.T) {
	capture := writeCapture(t, "capture.txt", "X-Frame-Options: DENY\n")

	_, err := executeCommand(t, "headers", "--input", capture, "--input-format", "xml")
	if !errors.Is(err, errs.ErrUnsupportedFormat) {
		t.Errorf("expected unsupported input format, got %v", err)
	}

	_, err = executeCommand(t, "headers", "--input", capture, "--format", "csv")
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedFormatError for output, got %v", err)
	}

	_, err = executeCommand(t, "headers", "--input", capture, "--format", "pdf")
	if err == nil || !strings.Contains(err.Error(), "requires --output") {
		t.Errorf("expected pdf to require --output, got %v", err)
	}

	_, err = executeCommand(t, "headers", "--input", capture, "https://example.com")
	if err == nil {
		t.Error("expected --input with targets to fail")
	}

	_, err = executeCommand(t, "headers")
	if !errors.Is(err, errs.ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget, got %v", err)
	}
}

func TestHeadersCommand_LiveSave(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Powered-By", "PHP/8.1")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	out, err := executeCommand(t, "headers", server.URL, "--save", "--save-raw", "--format", "json", "--rate-limit", "0")
	if err != nil {
		t.Fatalf("headers failed: %v", err)
	}

	var output RunOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if output.Metadata.RunID == "" || output.Metadata.AuditHash == "" {
		t.Fatalf("expected run id and audit hash, got %+v", output.Metadata)
	}
	if output.Results[0].Status != checker.StatusOK {
		t.Fatalf("expected ok result, got %+v", output.Results[0])
	}

	runDir := filepath.Join(os.Getenv("SECA_RESULTS_DIR"), output.Metadata.RunID)
	for _, name := range []string{"results.json", "results.json.sha256", "audit.csv", "audit.csv.sha256"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	raws, _ := filepath.Glob(filepath.Join(runDir, "raw_*.txt"))
	if len(raws) != 1 {
		t.Errorf("expected one raw capture, got %d", len(raws))
	}
	if _, err := os.Stat(filepath.Join(os.Getenv("SECA_RESULTS_DIR"), "telemetry.jsonl")); err != nil {
		t.Errorf("expected telemetry.jsonl: %v", err)
	}
}

func TestHeadersCommand_AllTargetsFail(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := executeCommand(t, "headers", url, "--timeout", "2")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !errors.Is(err, errs.ErrFetchFailed) {
		t.Errorf("expected FetchError to wrap ErrFetchFailed")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "seca-headers version dev") {
		t.Errorf("unexpected version output: %q", out)
	}
}
