package checker

import (
	"context"
	"errors"
	"net/http"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/khanhnv2901/seca-headers/internal/headers"
)

func TestAssessFraming(t *testing.T) {
	tests := []struct {
		name    string
		entries []headers.Entry
		want    string
	}{
		{name: "no headers", entries: nil, want: VerdictVulnerable},
		{name: "xfo deny", entries: []headers.Entry{{Name: "X-Frame-Options", Value: "deny"}}, want: VerdictProtected},
		{name: "xfo sameorigin", entries: []headers.Entry{{Name: "x-frame-options", Value: "SAMEORIGIN"}}, want: VerdictProtected},
		{name: "csp frame-ancestors", entries: []headers.Entry{{Name: "Content-Security-Policy", Value: "frame-ancestors 'self'"}}, want: VerdictProtected},
		{name: "csp wildcard ancestors", entries: []headers.Entry{{Name: "Content-Security-Policy", Value: "frame-ancestors *"}}, want: VerdictInconclusive},
		{name: "csp without ancestors", entries: []headers.Entry{{Name: "Content-Security-Policy", Value: "default-src 'self'"}}, want: VerdictInconclusive},
		{name: "xfo allow-from", entries: []headers.Entry{{Name: "X-Frame-Options", Value: "ALLOW-FROM https://a.example"}}, want: VerdictInconclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessFraming(tt.entries)
			if got.Verdict != tt.want {
				t.Fatalf("verdict = %q, want %q (%+v)", got.Verdict, tt.want, got)
			}
			if got.Method != "headers" {
				t.Errorf("expected header method, got %q", got.Method)
			}
		})
	}
}

func TestAssessFraming_NotSetPlaceholders(t *testing.T) {
	got := AssessFraming(nil)
	if got.XFrameOptions != "Not set" || got.CSP != "Not set" {
		t.Errorf("expected Not set placeholders, got %+v", got)
	}
}

type stubProber struct {
	verdict string
	err     error
	called  bool
}

func (s *stubProber) Probe(ctx context.Context, target string) (string, error) {
	s.called = true
	return s.verdict, s.err
}

func TestClickjackChecker_ProbeOnlyWhenInconclusive(t *testing.T) {
	protectedSrv := newHeaderServer(t, func(h http.Header) { h.Set("X-Frame-Options", "DENY") })
	openSrv := newHeaderServer(t, func(h http.Header) { h.Set("Content-Security-Policy", "default-src 'self'") })

	prober := &stubProber{verdict: VerdictVulnerable}
	chk := &ClickjackChecker{Timeout: 5 * time.Second, Prober: prober}

	result := chk.Check(context.Background(), protectedSrv.URL)
	if result.Framing == nil || result.Framing.Verdict != VerdictProtected {
		t.Fatalf("expected protected verdict, got %+v", result.Framing)
	}
	if prober.called {
		t.Error("prober must not run when headers are conclusive")
	}

	result = chk.Check(context.Background(), openSrv.URL)
	if !prober.called {
		t.Fatal("expected prober to run for inconclusive headers")
	}
	if result.Framing.Verdict != VerdictVulnerable || result.Framing.Method != "browser" {
		t.Errorf("expected browser vulnerable verdict, got %+v", result.Framing)
	}
}

func TestClickjackChecker_ProbeFailureKeepsHeaderVerdict(t *testing.T) {
	srv := newHeaderServer(t, func(h http.Header) { h.Set("X-Frame-Options", "ALLOW-FROM https://a.example") })

	chk := &ClickjackChecker{Timeout: 5 * time.Second, Prober: &stubProber{err: errors.New("no chrome")}}
	result := chk.Check(context.Background(), srv.URL)

	if result.Framing.Verdict != VerdictInconclusive || result.Framing.Method != "headers" {
		t.Errorf("expected inconclusive header verdict, got %+v", result.Framing)
	}
	if result.Notes == "" {
		t.Error("expected a note about the failed probe")
	}
}

func TestFrameVerdict(t *testing.T) {
	tests := []struct {
		urls []string
		want string
	}{
		{urls: nil, want: VerdictInconclusive},
		{urls: []string{"about:blank"}, want: VerdictInconclusive},
		{urls: []string{""}, want: VerdictInconclusive},
		{urls: []string{"chrome-error://https://target.example/"}, want: VerdictProtected},
		{urls: []string{"chrome-error://chromewebdata/"}, want: VerdictProtected},
		{urls: []string{"https://target.example/"}, want: VerdictVulnerable},
	}
	for _, tt := range tests {
		if got := frameVerdict(tt.urls); got != tt.want {
			t.Errorf("frameVerdict(%v) = %q, want %q", tt.urls, got, tt.want)
		}
	}
}

func TestFrameURL_UnreachableBecomesChromeError(t *testing.T) {
	refused := &cdp.Frame{URL: "chrome-error://chromewebdata/", UnreachableURL: "https://target.example/"}
	if got := frameVerdict([]string{frameURL(refused)}); got != VerdictProtected {
		t.Errorf("refused frame verdict = %q, want %q", got, VerdictProtected)
	}

	blank := &cdp.Frame{URL: "about:blank"}
	if got := frameVerdict([]string{frameURL(blank)}); got != VerdictInconclusive {
		t.Errorf("unnavigated frame verdict = %q, want %q", got, VerdictInconclusive)
	}
}

func TestBrowserFrameProber_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping browser integration test")
	}
	found := false
	for _, bin := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(bin); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("Chrome not installed")
	}

	srv := newHeaderServer(t, func(h http.Header) {})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	prober := &BrowserFrameProber{Wait: 2 * time.Second}
	verdict, err := prober.Probe(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if verdict != VerdictVulnerable {
		t.Errorf("expected unprotected page to be framed, got %q", verdict)
	}
}
