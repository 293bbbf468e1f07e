package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/headers"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-headers/internal/shared/errors"
)

// fetchedPage is a fetched response with a bounded body.
type fetchedPage struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// fetchPage issues a GET and reads at most BodyCaptureLimitBytes of the body.
func fetchPage(ctx context.Context, client *http.Client, target, userAgent string) (*fetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if userAgent == "" {
		userAgent = consts.DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.BodyCaptureLimitBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperrors.ErrFetchFailed, err)
	}

	return &fetchedPage{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}, nil
}

// HeaderChecker fetches a target and classifies its response headers.
type HeaderChecker struct {
	Timeout     time.Duration
	UserAgent   string
	Fingerprint bool
	// Client overrides the default HTTP client (tests).
	Client *http.Client
}

// Check performs a GET on the target and analyzes the response headers.
func (h *HeaderChecker) Check(ctx context.Context, target string) CheckResult {
	result := CheckResult{
		Target:    target,
		CheckedAt: time.Now().UTC(),
	}

	u := NormalizeHTTPTarget(target)
	if u == "" {
		result.Status = StatusError
		result.Error = fmt.Sprintf("invalid target %q", target)
		return result
	}

	client := h.Client
	if client == nil {
		client = newHTTPClient(h.Timeout)
	}

	p, err := fetchPage(ctx, client, u, h.UserAgent)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusOK
	result.FinalURL = p.URL
	result.HTTPStatus = p.StatusCode
	result.ResponseTime = float64(p.Elapsed.Microseconds()) / 1000

	entries := headers.FromHTTPHeader(p.Header)
	result.Headers = headers.Classify(entries)
	result.Misspellings = headers.DetectMisspellings(entries)

	if findings := AnalyzeCookies(p.Header); len(findings) > 0 {
		result.Cookies = findings
		result.addNote(fmt.Sprintf("%d cookie(s) missing Secure, HttpOnly or SameSite", len(findings)))
	}

	if h.Fingerprint {
		techs, err := Technologies(p.Header, p.Body)
		if err != nil {
			result.addNote(fmt.Sprintf("warning: fingerprint unavailable: %v", err))
		}
		result.Technologies = techs
	}

	if n := len(result.Headers.SensitiveDisclosed); n > 0 {
		result.addNote(fmt.Sprintf("%d header(s) disclose server details", n))
	}

	return result
}

// Name returns the name of this checker
func (h *HeaderChecker) Name() string {
	return "check headers"
}
