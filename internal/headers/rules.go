package headers

import "strings"

// SecurityHeaderSpec describes one recommended response header.
type SecurityHeaderSpec struct {
	Name        string
	Recommended string // empty when no single value applies
}

// MisconfigurationRule flags an insecure value of a single header. Matching
// is a plain substring or equality test on the raw value; header grammar is
// not parsed.
type MisconfigurationRule struct {
	Header string
	Issue  string
	Match  func(value string) bool
}

// securityHeaders is ordered; missing headers are reported in this order.
var securityHeaders = []SecurityHeaderSpec{
	{Name: "cache-control", Recommended: "no-store, no-cache, must-revalidate"},
	{Name: "content-security-policy", Recommended: "default-src 'self'"},
	{Name: "permissions-policy", Recommended: ""},
	{Name: "referrer-policy", Recommended: "strict-origin-when-cross-origin"},
	{Name: "strict-transport-security", Recommended: "max-age=31536000; includeSubDomains"},
	{Name: "x-content-type-options", Recommended: "nosniff"},
	{Name: "x-frame-options", Recommended: "DENY or SAMEORIGIN"},
	{Name: "x-xss-protection", Recommended: "1; mode=block"},
	{Name: "access-control-allow-headers", Recommended: "Specific Domain"},
}

// headerAliases lists alternate spellings folded into a canonical name.
var headerAliases = map[string][]string{
	"strict-transport-security": {
		"strict-transport-security",
		"strict transport security",
		"strict-transport header",
		"strict transports header",
	},
}

// sensitiveHeaders are flagged on presence alone.
var sensitiveHeaders = map[string]struct{}{
	"server":              {},
	"x-powered-by":        {},
	"x-aspnet-version":    {},
	"x-aspnetmvc-version": {},
	"x-runtime":           {},
	"x-version":           {},
}

var misconfigurationRules = []MisconfigurationRule{
	{
		Header: "content-security-policy",
		Issue:  "Contains 'unsafe-inline' or 'unsafe-eval'.",
		Match: func(value string) bool {
			return strings.Contains(value, "unsafe-inline") || strings.Contains(value, "unsafe-eval")
		},
	},
	{
		Header: "cache-control",
		Issue:  "Should not be 'public' for intranet security.",
		Match: func(value string) bool {
			return strings.Contains(value, "public")
		},
	},
	{
		Header: "referrer-policy",
		Issue:  "Weak referrer-policy detected.",
		Match: func(value string) bool {
			return value == "no-referrer-when-downgrade" || value == "unsafe-url"
		},
	},
}

var (
	securityHeaderIndex = buildSpecIndex(securityHeaders)
	aliasIndex          = buildAliasIndex(headerAliases)
)

func buildSpecIndex(specs []SecurityHeaderSpec) map[string]SecurityHeaderSpec {
	index := make(map[string]SecurityHeaderSpec, len(specs))
	for _, spec := range specs {
		index[spec.Name] = spec
	}
	return index
}

func buildAliasIndex(aliases map[string][]string) map[string]string {
	index := make(map[string]string)
	for canonical, forms := range aliases {
		for _, form := range forms {
			index[strings.ToLower(form)] = canonical
		}
	}
	return index
}

// SecurityHeaders returns a copy of the recommended header table.
func SecurityHeaders() []SecurityHeaderSpec {
	out := make([]SecurityHeaderSpec, len(securityHeaders))
	copy(out, securityHeaders)
	return out
}
