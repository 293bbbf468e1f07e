package checker

import (
	"net/url"
	"strings"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http or https
	Host     string // Hostname without port
	Port     string // Port if specified
	Path     string // Path if specified
	FullURL  string // Normalized URL used for requests
}

// ParseTarget parses a target string into structured components.
// Targets without a scheme are assumed to be HTTPS:
//   - example.com          -> https://example.com
//   - example.com:8080/app -> https://example.com:8080/app
//   - http://example.com   -> http://example.com
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{Original: target}

	parsed, err := url.Parse(target)
	// "example.com:8080" parses with scheme "example.com"; treat dotted schemes as hosts.
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, err = url.Parse("https://" + target)
	}
	if err != nil || parsed == nil {
		return info
	}

	info.Scheme = strings.ToLower(parsed.Scheme)
	info.Host = parsed.Hostname()
	info.Port = parsed.Port()
	info.Path = parsed.Path
	info.FullURL = parsed.String()
	return info
}

// NormalizeHTTPTarget returns a full URL with scheme, or "" when the target
// cannot be parsed into an HTTP(S) URL with a host.
func NormalizeHTTPTarget(target string) string {
	info := ParseTarget(target)
	if info.Host == "" || (info.Scheme != "http" && info.Scheme != "https") {
		return ""
	}
	return info.FullURL
}
