package checker

import (
	"net/http"
)

// CookieFinding records a Set-Cookie header missing a protective attribute.
type CookieFinding struct {
	Name              string `json:"name" yaml:"name"`
	MissingSecure     bool   `json:"missing_secure" yaml:"missing_secure"`
	MissingHTTPOnly   bool   `json:"missing_httponly" yaml:"missing_httponly"`
	MissingSameSite   bool   `json:"missing_samesite" yaml:"missing_samesite"`
	OriginalSetCookie string `json:"set_cookie" yaml:"set_cookie"`
}

// AnalyzeCookies inspects Set-Cookie headers for missing Secure, HttpOnly
// and SameSite attributes.
func AnalyzeCookies(h http.Header) []CookieFinding {
	raw := h.Values("Set-Cookie")
	if len(raw) == 0 {
		return nil
	}

	var findings []CookieFinding
	for _, line := range raw {
		cookie, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		finding := CookieFinding{
			Name:              cookie.Name,
			MissingSecure:     !cookie.Secure,
			MissingHTTPOnly:   !cookie.HttpOnly,
			MissingSameSite:   cookie.SameSite == 0,
			OriginalSetCookie: line,
		}
		if finding.MissingSecure || finding.MissingHTTPOnly || finding.MissingSameSite {
			findings = append(findings, finding)
		}
	}
	return findings
}
