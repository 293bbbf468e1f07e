package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newHeaderServer(t *testing.T, set func(h http.Header)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set(w.Header())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHeaderChecker_Check(t *testing.T) {
	server := newHeaderServer(t, func(h http.Header) {
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'unsafe-inline'")
		h.Set("Server", "nginx/1.18")
		h.Set("X-Frame-Option", "DENY")
		h.Add("Set-Cookie", "session=1; Path=/")
	})

	chk := &HeaderChecker{Timeout: 5 * time.Second}
	result := chk.Check(context.Background(), server.URL)

	if result.Status != StatusOK {
		t.Fatalf("expected status ok, got %q (%s)", result.Status, result.Error)
	}
	if result.HTTPStatus != http.StatusOK {
		t.Errorf("expected HTTP 200, got %d", result.HTTPStatus)
	}
	if result.Headers == nil {
		t.Fatal("expected header classification")
	}
	if len(result.Headers.Misconfigured) != 1 {
		t.Errorf("expected one misconfiguration, got %+v", result.Headers.Misconfigured)
	}
	if len(result.Headers.SensitiveDisclosed) != 1 || result.Headers.SensitiveDisclosed[0].Name != "SERVER" {
		t.Errorf("expected SERVER disclosure, got %+v", result.Headers.SensitiveDisclosed)
	}
	for _, m := range result.Headers.Missing {
		if m.Name == "x-frame-options" || m.Name == "content-security-policy" {
			t.Errorf("%s should be present", m.Name)
		}
	}
	if len(result.Misspellings) != 1 || result.Misspellings[0].Suggested != "x-frame-options" {
		t.Errorf("expected X-Frame-Option misspelling, got %+v", result.Misspellings)
	}
	if len(result.Cookies) != 1 {
		t.Errorf("expected one cookie finding, got %d", len(result.Cookies))
	}
	if result.Technologies != nil {
		t.Errorf("fingerprinting should be off by default, got %v", result.Technologies)
	}
}

func TestHeaderChecker_FetchError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	chk := &HeaderChecker{Timeout: time.Second}
	result := chk.Check(context.Background(), url)

	if result.Status != StatusError {
		t.Fatalf("expected error status, got %q", result.Status)
	}
	if result.Error == "" {
		t.Error("expected error message")
	}
	if result.Headers != nil {
		t.Error("classifier must not run when the fetch fails")
	}
}

func TestHeaderChecker_InvalidTarget(t *testing.T) {
	chk := &HeaderChecker{Timeout: time.Second}
	result := chk.Check(context.Background(), "ftp://example.com")
	if result.Status != StatusError {
		t.Fatalf("expected error status for invalid target, got %q", result.Status)
	}
}

type countingChecker struct {
	calls int32
}

func (c *countingChecker) Check(ctx context.Context, target string) CheckResult {
	atomic.AddInt32(&c.calls, 1)
	return CheckResult{Target: target, Status: StatusOK}
}

func (c *countingChecker) Name() string { return "counting" }

func TestRunner_RunChecks(t *testing.T) {
	runner := &Runner{Concurrency: 3, RateLimit: 100, Timeout: time.Second}
	targets := []string{"a.example", "b.example", "c.example", "d.example"}

	var audited int32
	chk := &countingChecker{}
	results := runner.RunChecks(context.Background(), targets, chk, func(target string, result CheckResult, duration float64) error {
		atomic.AddInt32(&audited, 1)
		return nil
	})

	if len(results) != len(targets) {
		t.Fatalf("expected %d results, got %d", len(targets), len(results))
	}
	for i, r := range results {
		if r.Target != targets[i] {
			t.Errorf("result %d target = %q, want %q", i, r.Target, targets[i])
		}
	}
	if atomic.LoadInt32(&chk.calls) != int32(len(targets)) {
		t.Errorf("expected %d checks, got %d", len(targets), chk.calls)
	}
	if atomic.LoadInt32(&audited) != int32(len(targets)) {
		t.Errorf("expected %d audit callbacks, got %d", len(targets), audited)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &Runner{Concurrency: 1, RateLimit: 1}
	results := runner.RunChecks(ctx, []string{"a.example", "b.example"}, &countingChecker{}, nil)

	for _, r := range results {
		if r.Status != StatusError {
			t.Errorf("expected error status after cancellation, got %q", r.Status)
		}
	}
}
