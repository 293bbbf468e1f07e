package cmd

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/khanhnv2901/seca-headers/internal/headers"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
)

// audit header fields:
var auditHeader = []string{
	"timestamp",
	"run_id",
	"operator",
	"command",
	"target",
	"status",
	"http_status",
	"missing",
	"misconfigured",
	"sensitive",
	"summary",
	"notes",
	"error",
	"duration_seconds",
}

// auditRow flattens one check result into the audit.csv column order.
func auditRow(runID, operatorName, commandName string, result checker.CheckResult, durationSeconds float64) []string {
	counts := result.Headers.Counts()
	return []string{
		time.Now().UTC().Format(time.RFC3339),
		runID,
		operatorName,
		commandName,
		result.Target,
		result.Status,
		strconv.Itoa(result.HTTPStatus),
		strconv.Itoa(counts.Missing),
		strconv.Itoa(counts.Misconfigured),
		strconv.Itoa(counts.Sensitive),
		auditSummary(result),
		result.Notes,
		result.Error,
		fmt.Sprintf("%.3f", durationSeconds),
	}
}

// auditSummary records what the non-header checks found, since the header
// count columns stay at zero for them.
func auditSummary(result checker.CheckResult) string {
	var parts []string
	if result.Framing != nil {
		parts = append(parts, "framing="+result.Framing.Verdict)
	}
	if result.Methods != nil {
		risky := "none"
		if len(result.Methods.RiskyAllowed) > 0 {
			risky = strings.Join(result.Methods.RiskyAllowed, "|")
		}
		parts = append(parts, "risky_methods="+risky)
	}
	if result.Secrets != nil {
		parts = append(parts, "secrets="+strconv.Itoa(result.Secrets.Total()))
	}
	if n := len(result.Cookies); n > 0 {
		parts = append(parts, "cookies="+strconv.Itoa(n))
	}
	if n := len(result.Technologies); n > 0 {
		parts = append(parts, "technologies="+strconv.Itoa(n))
	}
	return strings.Join(parts, ";")
}

// AppendAuditRow appends a single audit row to <resultsDir>/<runID>/audit.csv
func AppendAuditRow(resultsDir, runID, operatorName, commandName string, result checker.CheckResult, durationSeconds float64) error {
	auditPath, err := resolveResultsPath(resultsDir, runID, "audit.csv")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(auditPath), consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create results subdir failed: %w", err)
	}

	exists := true
	if _, err := os.Stat(auditPath); os.IsNotExist(err) {
		exists = false
	}

	f, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open audit file failed: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	if !exists {
		if err := writer.Write(auditHeader); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
	}
	if err := writer.Write(auditRow(runID, operatorName, commandName, result, durationSeconds)); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	writer.Flush()

	return writer.Error()
}

// SaveRawCapture writes the observed headers in the raw format that
// `headers --input` accepts, so a capture can be re-classified offline.
func SaveRawCapture(resultsDir, runID string, result checker.CheckResult) (string, error) {
	if result.Headers == nil {
		return "", nil
	}
	filename := fmt.Sprintf("raw_%d.txt", time.Now().UnixNano())
	path, err := resolveResultsPath(resultsDir, runID, filename)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := writeRawHeaders(f, result.HTTPStatus, result.Headers.All); err != nil {
		return "", err
	}
	return path, nil
}

func writeRawHeaders(w io.Writer, status int, entries []headers.Entry) error {
	if status > 0 {
		if _, err := fmt.Fprintf(w, "HTTP/1.1 %d\n", status); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.Name, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// HashFileSHA256 computes and writes a .sha256 companion file
func HashFileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))
	hashPath := path + ".sha256"
	content := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(hashPath, []byte(content), consts.DefaultFilePerm); err != nil {
		return "", err
	}
	return sum, nil
}
