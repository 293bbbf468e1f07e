package headers

import (
	"strings"

	"github.com/agext/levenshtein"
)

const (
	maxMisspellingDistance = 2
	minMisspellingLength   = 6
)

// Misspelling is a header name that is close to, but not, a recommended
// security header. Browsers ignore such headers.
type Misspelling struct {
	Name      string `json:"name" yaml:"name"`
	Value     string `json:"value" yaml:"value"`
	Suggested string `json:"suggested" yaml:"suggested"`
	Distance  int    `json:"distance" yaml:"distance"`
}

// DetectMisspellings flags names within a small edit distance of a
// recommended header. Exact matches and known aliases are never flagged.
func DetectMisspellings(entries []Entry) []Misspelling {
	var out []Misspelling
	for _, entry := range entries {
		name := strings.ToLower(strings.TrimSpace(entry.Name))
		if len(name) < minMisspellingLength {
			continue
		}
		if _, ok := canonicalName(name); ok {
			continue
		}

		best, bestDistance := "", maxMisspellingDistance+1
		for _, spec := range securityHeaders {
			d := levenshtein.Distance(name, spec.Name, nil)
			if d < bestDistance {
				best, bestDistance = spec.Name, d
			}
		}
		if best == "" {
			continue
		}
		out = append(out, Misspelling{
			Name:      strings.ToUpper(name),
			Value:     entry.Value,
			Suggested: best,
			Distance:  bestDistance,
		})
	}
	return out
}
