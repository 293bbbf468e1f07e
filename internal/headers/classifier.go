package headers

import "strings"

// Entry is a single response header as captured from the wire.
type Entry struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Missing is a recommended security header that was not sent.
type Missing struct {
	Name        string `json:"name" yaml:"name"`
	Recommended string `json:"recommended,omitempty" yaml:"recommended,omitempty"`
}

// Misconfiguration is a header whose value matched a misconfiguration rule.
type Misconfiguration struct {
	Name    string `json:"name" yaml:"name"`
	Current string `json:"current" yaml:"current"`
	Issue   string `json:"issue" yaml:"issue"`
}

// Result is the security assessment of one set of response headers.
type Result struct {
	Missing            []Missing          `json:"missing" yaml:"missing"`
	Misconfigured      []Misconfiguration `json:"misconfigured" yaml:"misconfigured"`
	SensitiveDisclosed []Entry            `json:"sensitive_disclosed" yaml:"sensitive_disclosed"`
	All                []Entry            `json:"all" yaml:"all"`
	// Present holds the recommended headers that were found, keyed by their
	// canonical name, with the last value seen.
	Present []Entry `json:"present" yaml:"present"`
}

// Counts summarizes a Result for gating and one-line summaries.
type Counts struct {
	Missing       int `json:"missing"`
	Misconfigured int `json:"misconfigured"`
	Sensitive     int `json:"sensitive"`
	Total         int `json:"total"`
}

// Counts returns the size of each finding list.
func (r *Result) Counts() Counts {
	if r == nil {
		return Counts{}
	}
	return Counts{
		Missing:       len(r.Missing),
		Misconfigured: len(r.Misconfigured),
		Sensitive:     len(r.SensitiveDisclosed),
		Total:         len(r.All),
	}
}

// Classify assesses a sequence of response headers against the fixed rule
// tables. It never fails: nil or empty input reports every recommended
// header as missing.
func Classify(entries []Entry) *Result {
	present := make(map[string]string, len(securityHeaders))

	result := &Result{
		Missing:            []Missing{},
		Misconfigured:      []Misconfiguration{},
		SensitiveDisclosed: []Entry{},
		All:                make([]Entry, 0, len(entries)),
		Present:            []Entry{},
	}

	for _, entry := range entries {
		name := strings.ToLower(entry.Name)
		display := strings.ToUpper(name)

		if canonical, ok := canonicalName(name); ok {
			present[canonical] = entry.Value
		}

		if _, ok := sensitiveHeaders[name]; ok {
			result.SensitiveDisclosed = append(result.SensitiveDisclosed, Entry{Name: display, Value: entry.Value})
		}

		result.All = append(result.All, Entry{Name: display, Value: entry.Value})

		for _, rule := range misconfigurationRules {
			if rule.Header == name && rule.Match(entry.Value) {
				result.Misconfigured = append(result.Misconfigured, Misconfiguration{
					Name:    display,
					Current: entry.Value,
					Issue:   rule.Issue,
				})
			}
		}
	}

	for _, spec := range securityHeaders {
		if value, ok := present[spec.Name]; ok {
			result.Present = append(result.Present, Entry{Name: spec.Name, Value: value})
			continue
		}
		result.Missing = append(result.Missing, Missing{Name: spec.Name, Recommended: spec.Recommended})
	}

	return result
}

// canonicalName folds aliases and reports whether name is a recommended header.
func canonicalName(folded string) (string, bool) {
	if canonical, ok := aliasIndex[folded]; ok {
		return canonical, true
	}
	if _, ok := securityHeaderIndex[folded]; ok {
		return folded, true
	}
	return "", false
}
