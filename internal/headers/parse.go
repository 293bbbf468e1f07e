package headers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/khanhnv2901/seca-headers/internal/shared/errors"
	"gopkg.in/yaml.v3"
)

// Capture formats accepted by Decode.
const (
	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseRaw reads a raw header dump ("Name: value" per line), such as the
// output of `curl -sI`. Blank lines are skipped. An HTTP status line starts
// a new response, so for `curl -sIL` redirect chains only the final hop's
// headers are returned. Names are kept verbatim so alias spellings survive.
func ParseRaw(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	entries := []Entry{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "HTTP/") {
			entries = entries[:0]
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: line %d: %q", apperrors.ErrMalformedHeaderLine, lineNo, line)
		}
		entries = append(entries, Entry{Name: name, Value: strings.TrimSpace(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	return entries, nil
}

// Decode reads a header capture in the given format (raw, json or yaml).
// Structured formats are a list of {name, value} objects.
func Decode(r io.Reader, format string) ([]Entry, error) {
	switch strings.ToLower(format) {
	case FormatRaw, "":
		return ParseRaw(r)
	case FormatJSON:
		entries := []Entry{}
		if err := json.NewDecoder(r).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode json headers: %w", err)
		}
		return entries, nil
	case FormatYAML, "yml":
		entries := []Entry{}
		if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml headers: %w", err)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format)
	}
}

// FromHTTPHeader flattens a header map into entries. Go does not keep wire
// order, so keys are sorted; multiple values of one key keep their order.
func FromHTTPHeader(h http.Header) []Entry {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			entries = append(entries, Entry{Name: k, Value: v})
		}
	}
	return entries
}

// ToHTTPHeader builds a header map from entries, preserving repeated values.
func ToHTTPHeader(entries []Entry) http.Header {
	h := make(http.Header, len(entries))
	for _, e := range entries {
		h.Add(e.Name, e.Value)
	}
	return h
}
