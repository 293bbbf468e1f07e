package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"golang.org/x/time/rate"
)

// HTTPMethods is the verb list probed by MethodChecker, in probe order.
var HTTPMethods = []string{
	"OPTIONS", "GET", "HEAD", "POST", "PUT", "DELETE", "TRACE", "TRACK", "DEBUG", "PURGE",
	"CONNECT", "PROPFIND", "PROPPATCH", "MKCOL", "COPY", "MOVE", "LOCK", "UNLOCK",
	"VERSION-CONTROL", "REPORT", "CHECKOUT", "CHECKIN", "UNCHECKOUT", "MKWORKSPACE",
	"UPDATE", "LABEL", "MERGE", "BASELINE-CONTROL", "MKACTIVITY", "ORDERPATCH", "ACL",
	"PATCH", "SEARCH", "ARBITRARY", "BIND", "LINK", "MKCALENDAR", "MKREDIRECTREF", "PRI",
	"QUERY", "REBIND", "UNBIND", "UNLINK", "UPDATEREDIRECTREF",
}

// unsupportedMethods cannot be sent as an ordinary request by net/http.
var unsupportedMethods = map[string]struct{}{
	http.MethodConnect: {},
}

// riskyMethods should not be accepted by a public endpoint.
var riskyMethods = map[string]struct{}{
	"TRACE": {}, "TRACK": {}, "DEBUG": {}, "PUT": {}, "DELETE": {}, "CONNECT": {},
	"PROPFIND": {}, "PROPPATCH": {}, "MKCOL": {}, "COPY": {}, "MOVE": {},
	"LOCK": {}, "UNLOCK": {}, "PATCH": {},
}

// MethodResult is the outcome of one verb probe.
type MethodResult struct {
	Method  string `json:"method" yaml:"method"`
	Allowed bool   `json:"allowed" yaml:"allowed"`
	Status  string `json:"status" yaml:"status"`
}

// MethodScan aggregates a verb enumeration.
type MethodScan struct {
	Results      []MethodResult `json:"results" yaml:"results"`
	RiskyAllowed []string       `json:"risky_allowed" yaml:"risky_allowed"`
}

// MethodChecker enumerates the HTTP verbs a target accepts. A verb counts
// as allowed only for a 2xx response; redirects are not followed.
type MethodChecker struct {
	Timeout     time.Duration
	UserAgent   string
	Concurrency int
	RateLimit   int // requests per second; 0 = unlimited
	Methods     []string
	Client      *http.Client
}

// Check probes every configured verb and returns results in probe order.
func (m *MethodChecker) Check(ctx context.Context, target string) CheckResult {
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

	methods := m.Methods
	if len(methods) == 0 {
		methods = HTTPMethods
	}
	client := m.client()

	concurrency := m.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if m.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.RateLimit), 1)
	}

	start := time.Now()
	scan := &MethodScan{
		Results:      make([]MethodResult, len(methods)),
		RiskyAllowed: []string{},
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, method := range methods {
		wg.Add(1)
		go func(idx int, method string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := limiter.Wait(ctx); err != nil {
				scan.Results[idx] = MethodResult{Method: method, Status: "Error: " + err.Error()}
				return
			}
			scan.Results[idx] = m.probe(ctx, client, u, method)
		}(i, method)
	}
	wg.Wait()

	for _, r := range scan.Results {
		if _, risky := riskyMethods[r.Method]; risky && r.Allowed {
			scan.RiskyAllowed = append(scan.RiskyAllowed, r.Method)
		}
	}

	result.Status = StatusOK
	result.Methods = scan
	result.ResponseTime = float64(time.Since(start).Microseconds()) / 1000
	if len(scan.RiskyAllowed) > 0 {
		result.addNote(fmt.Sprintf("risky methods allowed: %v", scan.RiskyAllowed))
	}
	return result
}

func (m *MethodChecker) probe(ctx context.Context, client *http.Client, target, method string) MethodResult {
	if _, ok := unsupportedMethods[method]; ok {
		return MethodResult{Method: method, Status: "Unsupported by client"}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return MethodResult{Method: method, Status: "Error: " + err.Error()}
	}
	ua := m.UserAgent
	if ua == "" {
		ua = consts.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		return MethodResult{Method: method, Status: "Error: " + err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.BodyCaptureLimitBytes))

	return MethodResult{
		Method:  method,
		Allowed: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  strconv.Itoa(resp.StatusCode),
	}
}

func (m *MethodChecker) client() *http.Client {
	base := m.Client
	if base == nil {
		base = newHTTPClient(m.Timeout)
	}
	c := *base
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}

// Name returns the name of this checker
func (m *MethodChecker) Name() string {
	return "check methods"
}
