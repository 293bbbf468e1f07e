package checker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/headers"
)

// Framing verdicts.
const (
	VerdictProtected    = "protected"
	VerdictVulnerable   = "vulnerable"
	VerdictInconclusive = "inconclusive"
)

const headerNotSet = "Not set"

// FramingAssessment is the clickjacking verdict for one response.
type FramingAssessment struct {
	Verdict       string `json:"verdict" yaml:"verdict"`
	Reason        string `json:"reason" yaml:"reason"`
	XFrameOptions string `json:"x_frame_options" yaml:"x_frame_options"`
	CSP           string `json:"content_security_policy" yaml:"content_security_policy"`
	// Method is "headers" or "browser".
	Method string `json:"method" yaml:"method"`
}

// AssessFraming decides whether a page can be framed using only its
// X-Frame-Options and Content-Security-Policy headers. Repeated headers are
// joined with ", " as browsers do.
func AssessFraming(entries []headers.Entry) FramingAssessment {
	h := headers.ToHTTPHeader(entries)
	xfo := joinedValue(h, "X-Frame-Options")
	csp := joinedValue(h, "Content-Security-Policy")

	assessment := FramingAssessment{
		XFrameOptions: xfo,
		CSP:           csp,
		Method:        "headers",
	}

	upperXFO := strings.ToUpper(xfo)
	lowerCSP := strings.ToLower(csp)
	protected := strings.Contains(upperXFO, "DENY") ||
		strings.Contains(upperXFO, "SAMEORIGIN") ||
		(strings.Contains(lowerCSP, "frame-ancestors") && !strings.Contains(lowerCSP, "frame-ancestors *"))

	switch {
	case protected:
		assessment.Verdict = VerdictProtected
		assessment.Reason = "Headers prevent framing."
	case xfo == headerNotSet && csp == headerNotSet:
		assessment.Verdict = VerdictVulnerable
		assessment.Reason = "No protection headers."
	default:
		assessment.Verdict = VerdictInconclusive
		assessment.Reason = "Headers present but do not restrict framing."
	}
	return assessment
}

func joinedValue(h http.Header, name string) string {
	values := h.Values(name)
	if len(values) == 0 {
		return headerNotSet
	}
	return strings.Join(values, ", ")
}

// FrameProber loads a target inside a frame and reports a framing verdict.
type FrameProber interface {
	Probe(ctx context.Context, target string) (string, error)
}

// ClickjackChecker assesses clickjacking susceptibility. Header evidence is
// tried first; an inconclusive result falls through to Prober when set.
type ClickjackChecker struct {
	Timeout   time.Duration
	UserAgent string
	Prober    FrameProber
	Client    *http.Client
}

// Check fetches the target and assesses its framing protection.
func (c *ClickjackChecker) Check(ctx context.Context, target string) CheckResult {
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

	client := c.Client
	if client == nil {
		client = newHTTPClient(c.Timeout)
	}

	p, err := fetchPage(ctx, client, u, c.UserAgent)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusOK
	result.FinalURL = p.URL
	result.HTTPStatus = p.StatusCode
	result.ResponseTime = float64(p.Elapsed.Microseconds()) / 1000

	assessment := AssessFraming(headers.FromHTTPHeader(p.Header))
	if assessment.Verdict == VerdictInconclusive && c.Prober != nil {
		verdict, err := c.Prober.Probe(ctx, u)
		switch {
		case err != nil:
			result.addNote(fmt.Sprintf("warning: browser probe failed: %v", err))
		case verdict == VerdictVulnerable:
			assessment.Verdict = verdict
			assessment.Reason = "Site loaded in frame."
			assessment.Method = "browser"
		case verdict == VerdictProtected:
			assessment.Verdict = verdict
			assessment.Reason = "Site refused to load content."
			assessment.Method = "browser"
		default:
			assessment.Reason = "Could not determine status."
			assessment.Method = "browser"
		}
	}
	result.Framing = &assessment

	return result
}

// Name returns the name of this checker
func (c *ClickjackChecker) Name() string {
	return "check clickjack"
}
