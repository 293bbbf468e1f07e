package checker

import (
	"context"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/headers"
	"golang.org/x/time/rate"
)

// Status values recorded in CheckResult.Status.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// CheckResult represents the result of a single target check
type CheckResult struct {
	Target       string                `json:"target" yaml:"target"`
	FinalURL     string                `json:"final_url,omitempty" yaml:"final_url,omitempty"`
	CheckedAt    time.Time             `json:"checked_at" yaml:"checked_at"`
	Status       string                `json:"status" yaml:"status"`
	HTTPStatus   int                   `json:"http_status,omitempty" yaml:"http_status,omitempty"`
	ResponseTime float64               `json:"response_time_ms,omitempty" yaml:"response_time_ms,omitempty"`
	Headers      *headers.Result       `json:"headers,omitempty" yaml:"headers,omitempty"`
	Misspellings []headers.Misspelling `json:"misspellings,omitempty" yaml:"misspellings,omitempty"`
	Cookies      []CookieFinding       `json:"cookies,omitempty" yaml:"cookies,omitempty"`
	Technologies []string              `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Framing      *FramingAssessment    `json:"framing,omitempty" yaml:"framing,omitempty"`
	Methods      *MethodScan           `json:"methods,omitempty" yaml:"methods,omitempty"`
	Secrets      *SecretScan           `json:"secrets,omitempty" yaml:"secrets,omitempty"`
	Notes        string                `json:"notes,omitempty" yaml:"notes,omitempty"`
	Error        string                `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *CheckResult) addNote(note string) {
	if r.Notes != "" {
		r.Notes += "; "
	}
	r.Notes += note
}

// Checker is the interface that all check implementations must satisfy
type Checker interface {
	// Check performs the actual check logic for a single target
	Check(ctx context.Context, target string) CheckResult

	// Name returns the name of this checker (e.g., "check headers")
	Name() string
}

// AuditFunc is a callback function to log audit information
type AuditFunc func(target string, result CheckResult, duration float64) error

// Runner orchestrates the execution of checks with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent checks
	RateLimit   int           // Requests per second (global)
	Timeout     time.Duration // Timeout for each check
}

// RunChecks executes checks against multiple targets using a worker pool.
// Results are returned in target order.
func (r *Runner) RunChecks(ctx context.Context, targets []string, checker Checker, auditFn AuditFunc) []CheckResult {
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	burst := 1
	if r.RateLimit > 0 {
		limit = rate.Limit(r.RateLimit)
		burst = r.RateLimit
	}
	limiter := rate.NewLimiter(limit, burst)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]CheckResult, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := limiter.Wait(ctx); err != nil {
				results[idx] = CheckResult{
					Target:    t,
					CheckedAt: time.Now().UTC(),
					Status:    StatusError,
					Error:     err.Error(),
				}
				return
			}

			start := time.Now()

			checkCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			result := checker.Check(checkCtx, t)

			duration := time.Since(start).Seconds()

			if auditFn != nil {
				_ = auditFn(t, result, duration)
			}

			results[idx] = result
		}(i, target)
	}

	wg.Wait()
	return results
}
