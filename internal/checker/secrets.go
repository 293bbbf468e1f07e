package checker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"golang.org/x/net/html"
)

// secretPattern is one named pattern of the sensitive-data scan.
type secretPattern struct {
	Type  string
	Regex *regexp.Regexp
}

// secretPatterns are applied in this order; finding groups follow it.
var secretPatterns = []secretPattern{
	{Type: "emails", Regex: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{Type: "passwords", Regex: regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[:=]\s*['"]?([^'"\s]{6,})['"]?`)},
	{Type: "tokens", Regex: regexp.MustCompile(`\b(eyJ[a-zA-Z0-9-_]+\.[a-zA-Z0-9-_]+\.[a-zA-Z0-9-_]+)\b`)},
	{Type: "apiKeys", Regex: regexp.MustCompile(`(?i)\b(api[-_]?key|token)\s*[:=]\s*['"]?[a-zA-Z0-9]{16,64}['"]?`)},
	{Type: "usernames", Regex: regexp.MustCompile(`(?i)\b(username|user|login)\s*[:=]\s*['"]?([a-zA-Z0-9_-]{4,})['"]?`)},
	{Type: "creditCards", Regex: regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)},
	{Type: "ssn", Regex: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{Type: "phoneNumbers", Regex: regexp.MustCompile(`\b(\+\d{1,3}[- ]?)?\(?\d{3}\)?[- ]?\d{3}[- ]?\d{4}\b`)},
}

// SecretFinding is one pattern match and where it was found.
type SecretFinding struct {
	Value    string `json:"value" yaml:"value"`
	Location string `json:"location" yaml:"location"`
}

// SecretGroup holds all matches of one pattern type.
type SecretGroup struct {
	Type     string          `json:"type" yaml:"type"`
	Findings []SecretFinding `json:"findings" yaml:"findings"`
}

// SecretScan is the result of a page + script sensitive-data scan.
type SecretScan struct {
	Groups  []SecretGroup `json:"groups" yaml:"groups"`
	Scripts []string      `json:"scripts" yaml:"scripts"`
	Skipped []string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Total returns the number of findings across all groups.
func (s *SecretScan) Total() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, g := range s.Groups {
		n += len(g.Findings)
	}
	return n
}

// ScanContent matches every pattern against content. Matches are reported
// in pattern order, then in order of appearance.
func ScanContent(content, location string) map[string][]SecretFinding {
	found := make(map[string][]SecretFinding)
	for _, p := range secretPatterns {
		for _, m := range p.Regex.FindAllString(content, -1) {
			found[p.Type] = append(found[p.Type], SecretFinding{Value: m, Location: location})
		}
	}
	return found
}

// ScriptSources returns the resolved src of every <script> element, deduplicated
// in document order. data: URIs are skipped.
func ScriptSources(body []byte, base *url.URL) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil || base == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var sources []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key != "src" {
					continue
				}
				src := strings.TrimSpace(attr.Val)
				if src == "" || strings.HasPrefix(src, "data:") {
					continue
				}
				resolved, err := base.Parse(src)
				if err != nil {
					continue
				}
				abs := resolved.String()
				if _, ok := seen[abs]; ok {
					continue
				}
				seen[abs] = struct{}{}
				sources = append(sources, abs)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return sources
}

// SecretScanner looks for credentials, tokens and PII in a page and in
// every external script it loads.
type SecretScanner struct {
	Timeout       time.Duration
	ScriptTimeout time.Duration
	UserAgent     string
	Concurrency   int
	Client        *http.Client
}

// Check fetches the target page and its scripts and scans them.
func (s *SecretScanner) Check(ctx context.Context, target string) CheckResult {
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

	client := s.Client
	if client == nil {
		client = newHTTPClient(s.Timeout)
	}

	p, err := fetchPage(ctx, client, u, s.UserAgent)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusOK
	result.FinalURL = p.URL
	result.HTTPStatus = p.StatusCode
	result.ResponseTime = float64(p.Elapsed.Microseconds()) / 1000

	found := ScanContent(string(p.Body), p.URL)

	base, _ := url.Parse(p.URL)
	scripts := ScriptSources(p.Body, base)
	scan := &SecretScan{Scripts: scripts}
	if scan.Scripts == nil {
		scan.Scripts = []string{}
	}

	scriptFindings, skipped := s.scanScripts(ctx, client, scripts)
	scan.Skipped = skipped

	for _, pattern := range secretPatterns {
		matches := found[pattern.Type]
		for _, perScript := range scriptFindings {
			matches = append(matches, perScript[pattern.Type]...)
		}
		if len(matches) > 0 {
			scan.Groups = append(scan.Groups, SecretGroup{Type: pattern.Type, Findings: matches})
		}
	}
	if scan.Groups == nil {
		scan.Groups = []SecretGroup{}
	}
	result.Secrets = scan

	if total := scan.Total(); total > 0 {
		result.addNote(fmt.Sprintf("%d potential secret(s) found", total))
	}
	if len(skipped) > 0 {
		result.addNote(fmt.Sprintf("%d script(s) skipped", len(skipped)))
	}
	return result
}

// scanScripts fetches scripts with a per-script timeout. Results are indexed
// like scripts so merged findings keep document order.
func (s *SecretScanner) scanScripts(ctx context.Context, client *http.Client, scripts []string) ([]map[string][]SecretFinding, []string) {
	timeout := s.ScriptTimeout
	if timeout <= 0 {
		timeout = consts.ScriptFetchTimeout
	}
	concurrency := s.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}

	results := make([]map[string][]SecretFinding, len(scripts))
	failed := make([]bool, len(scripts))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, src := range scripts {
		wg.Add(1)
		go func(idx int, src string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			scriptCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			p, err := fetchPage(scriptCtx, client, src, s.UserAgent)
			if err != nil {
				failed[idx] = true
				return
			}
			results[idx] = ScanContent(string(p.Body), src)
		}(i, src)
	}
	wg.Wait()

	var skipped []string
	for i, f := range failed {
		if f {
			skipped = append(skipped, scripts[i])
		}
	}
	return results, skipped
}

// Name returns the name of this checker
func (s *SecretScanner) Name() string {
	return "check secrets"
}
