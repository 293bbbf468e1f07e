// Package checker runs the single-shot security checks behind seca-headers.
//
// Architecture overview:
//
//   - Checkers implement the Checker interface (Check + Name). HeaderChecker
//     classifies response headers, ClickjackChecker decides whether a page
//     can be framed, MethodChecker enumerates accepted HTTP verbs, and
//     SecretScanner searches a page and its scripts for credentials and PII.
//   - Runner fans a target list out over a bounded worker pool with a global
//     rate limit and a per-check timeout, invoking an AuditFunc per target.
//   - CheckResult is the shared record written to results.json and rendered
//     by the CLI and the REST API.
//
// Fetch failures never abort a run: they are recorded in CheckResult.Error
// and the remaining targets continue.
package checker
