package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/khanhnv2901/seca-headers/internal/headers"
	errs "github.com/khanhnv2901/seca-headers/internal/shared/errors"
	"gopkg.in/yaml.v3"
)

func sampleOutput() *RunOutput {
	entries := []headers.Entry{
		{Name: "Content-Security-Policy", Value: "default-src 'self' 'unsafe-inline'"},
		{Name: "Server", Value: "nginx|1.18"},
		{Name: "Referer-Policy", Value: "no-referrer"},
	}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &RunOutput{
		Metadata: RunMetadata{
			RunID:        "headers-20240501T120000.000Z",
			Operator:     "tester",
			Command:      "headers",
			StartAt:      start,
			CompleteAt:   start.Add(time.Second),
			TotalTargets: 2,
		},
		Results: []checker.CheckResult{
			{
				Target:       "https://example.com",
				Status:       checker.StatusOK,
				HTTPStatus:   200,
				Headers:      headers.Classify(entries),
				Misspellings: headers.DetectMisspellings(entries),
				Framing:      &checker.FramingAssessment{Verdict: checker.VerdictVulnerable, Method: "headers", Reason: "no framing policy"},
			},
			{
				Target: "https://down.example",
				Status: checker.StatusError,
				Error:  "connection refused",
			},
		},
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "table", want: formatTable},
		{in: " JSON ", want: formatJSON},
		{in: "yml", want: formatYAML},
		{in: "md", want: formatMarkdown},
		{in: "pdf", want: formatPDF},
	}
	for _, tt := range tests {
		got, err := normalizeFormat(tt.in)
		if err != nil {
			t.Fatalf("normalizeFormat(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("normalizeFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	_, err := normalizeFormat("csv")
	if !errors.Is(err, errs.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRenderReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderReport(&buf, formatJSON, sampleOutput()); err != nil {
		t.Fatalf("render json: %v", err)
	}

	var decoded RunOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Metadata.RunID != "headers-20240501T120000.000Z" {
		t.Errorf("unexpected run id %q", decoded.Metadata.RunID)
	}
	if len(decoded.Results[0].Headers.Misconfigured) != 1 {
		t.Errorf("expected CSP misconfiguration, got %+v", decoded.Results[0].Headers.Misconfigured)
	}
}

func TestRenderReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := renderReport(&buf, formatYAML, sampleOutput()); err != nil {
		t.Fatalf("render yaml: %v", err)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "sensitive_disclosed:") {
		t.Errorf("expected snake_case keys in yaml output:\n%s", buf.String())
	}
}

func TestRenderReport_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := renderReport(&buf, formatMarkdown, sampleOutput()); err != nil {
		t.Fatalf("render markdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# HTTP Security Header Report",
		"| https://example.com | ok | 200 |",
		"`nginx\\|1.18`",
		"- `REFERER-POLICY` looks like `referrer-policy`",
		"**vulnerable** (headers)",
		"> **Error:** connection refused",
		"- `strict-transport-security`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestRenderReport_Table(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	if err := renderReport(&buf, formatTable, sampleOutput()); err != nil {
		t.Fatalf("render table: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Target: https://example.com [ok]",
		"Missing: 8",
		"Misconfigured: 1",
		"Sensitive Disclosed: 1",
		"Possible Misspellings: 1",
		"Clickjacking: vulnerable (headers)",
		"Error: connection refused",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q\n%s", want, out)
		}
	}
}

func TestRenderReport_PDF(t *testing.T) {
	var buf bytes.Buffer
	if err := renderReport(&buf, formatPDF, sampleOutput()); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept short string as %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate = %q", got)
	}

	long := strings.Repeat("é", 40)
	if got := truncate(long, 40); got != long {
		t.Errorf("40 runes should fit in 40, got %q", got)
	}
	got := truncate(long, 20)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a multi-byte rune: %q", got)
	}
	if want := strings.Repeat("é", 17) + "..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
	if got := truncate("Content-Security-Policy: 默认", 2); got != ".." {
		t.Errorf("tiny max = %q", got)
	}
}

func TestFormatShortTimestamp(t *testing.T) {
	if got := formatShortTimestamp(time.Time{}); got != "-" {
		t.Errorf("zero time = %q, want -", got)
	}
}

func TestParseFailOn(t *testing.T) {
	got, err := parseFailOn([]string{" Missing", "sensitive", ""})
	if err != nil {
		t.Fatalf("parseFailOn: %v", err)
	}
	if !got[failOnMissing] || !got[failOnSensitive] || got[failOnMisconfigured] {
		t.Errorf("unexpected selection %+v", got)
	}

	if _, err := parseFailOn([]string{"loud"}); err == nil {
		t.Error("expected unknown category to fail")
	}
}

func TestEvaluateFailOn(t *testing.T) {
	results := sampleOutput().Results

	if err := evaluateFailOn(results, nil); err != nil {
		t.Errorf("empty selection should never fail, got %v", err)
	}

	err := evaluateFailOn(results, map[string]bool{failOnMisconfigured: true, failOnSensitive: true})
	var threshold *FindingsThresholdError
	if !errors.As(err, &threshold) {
		t.Fatalf("expected FindingsThresholdError, got %v", err)
	}
	if threshold.Categories[failOnMisconfigured] != 1 || threshold.Categories[failOnSensitive] != 1 {
		t.Errorf("unexpected totals %+v", threshold.Categories)
	}
	if exitCodeFor(err) != exitFindings {
		t.Errorf("expected findings exit code, got %d", exitCodeFor(err))
	}

	clean := []checker.CheckResult{{Status: checker.StatusOK, Headers: headers.Classify([]headers.Entry{{Name: "X-Frame-Options", Value: "DENY"}})}}
	if err := evaluateFailOn(clean, map[string]bool{failOnSensitive: true}); err != nil {
		t.Errorf("expected pass with no sensitive headers, got %v", err)
	}
}
