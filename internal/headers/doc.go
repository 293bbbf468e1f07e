// Package headers classifies HTTP response headers for security posture.
//
// Classify is a pure function over fixed rule tables: recommended headers
// (with alias spellings), headers that disclose server details, and a short
// list of misconfiguration rules. It reports missing, misconfigured, and
// sensitive headers along with a normalized listing of every header seen.
//
// The rule tables are built once at package init and never mutated, so
// Classify is safe to call from any number of goroutines.
//
// ParseRaw, Decode and FromHTTPHeader turn captures and live responses into
// the ordered Entry slices that Classify consumes.
package headers
