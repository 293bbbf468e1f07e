package cmd

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/khanhnv2901/seca-headers/internal/headers"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable    = "table"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatMarkdown = "markdown"
	formatPDF      = "pdf"

	markdownTemplatePath = "templates/report.md"
	pdfMaxFindings       = 40
)

var reportFormats = []string{formatTable, formatJSON, formatYAML, formatMarkdown, formatPDF}

//go:embed templates/report.md
var reportTemplateFS embed.FS

var (
	markdownTemplateFuncs = template.FuncMap{
		"join":       strings.Join,
		"counts":     resultCounts,
		"mdEscape":   markdownEscape,
		"formatTime": formatShortTimestamp,
		"expected":   headers.SecurityHeaders,
	}

	markdownReportTemplate = template.Must(
		template.New("report.md").Funcs(markdownTemplateFuncs).ParseFS(reportTemplateFS, markdownTemplatePath),
	)
)

func normalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case "md":
		f = formatMarkdown
	case "yml":
		f = formatYAML
	}
	for _, allowed := range reportFormats {
		if f == allowed {
			return f, nil
		}
	}
	return "", &UnsupportedFormatError{Format: format, Allowed: reportFormats}
}

// writeReport renders output in the --format requested and writes it to
// --output or stdout.
func writeReport(cmd *cobra.Command, output *RunOutput) error {
	rawFormat, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	format, err := normalizeFormat(rawFormat)
	if err != nil {
		return err
	}
	if format == formatPDF && outPath == "" {
		return fmt.Errorf("--format pdf requires --output")
	}

	var buf bytes.Buffer
	if err := renderReport(&buf, format, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s Report written: %s\n", colorInfo("→"), outPath)
	return nil
}

func renderReport(w io.Writer, format string, output *RunOutput) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent(jsonPrefix, jsonIndent)
		return enc.Encode(output)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(output); err != nil {
			return err
		}
		return enc.Close()
	case formatMarkdown:
		return markdownReportTemplate.Execute(w, output)
	case formatPDF:
		b, err := generatePDFReportBytes(output)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case formatTable:
		return renderTable(w, output)
	}
	return &UnsupportedFormatError{Format: format, Allowed: reportFormats}
}

func resultCounts(r checker.CheckResult) headers.Counts {
	return r.Headers.Counts()
}

func formatShortTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

func markdownEscape(s string) string {
	r := strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")
	return r.Replace(s)
}

func renderTable(w io.Writer, output *RunOutput) error {
	for i, r := range output.Results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderResultTable(w, r)
	}
	return nil
}

func renderResultTable(w io.Writer, r checker.CheckResult) {
	fmt.Fprintf(w, "%s %s [%s]", colorHeading("Target:"), r.Target, formatStatusWithColor(r.Status))
	if r.HTTPStatus > 0 {
		fmt.Fprintf(w, " HTTP %d (%.0f ms)", r.HTTPStatus, r.ResponseTime)
	}
	fmt.Fprintln(w)
	if r.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", colorError("Error:"), r.Error)
		return
	}

	if r.Headers != nil {
		renderHeaderSections(w, r.Headers)
	}
	if len(r.Misspellings) > 0 {
		section(w, "Possible Misspellings", len(r.Misspellings))
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "  HEADER\tDID YOU MEAN\tDISTANCE")
		for _, m := range r.Misspellings {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", m.Name, m.Suggested, m.Distance)
		}
		tw.Flush()
	}
	if len(r.Cookies) > 0 {
		section(w, "Cookies", len(r.Cookies))
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "  NAME\tSECURE\tHTTPONLY\tSAMESITE")
		for _, c := range r.Cookies {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.Name, flag(!c.MissingSecure), flag(!c.MissingHTTPOnly), flag(!c.MissingSameSite))
		}
		tw.Flush()
	}
	if len(r.Technologies) > 0 {
		section(w, "Technologies", len(r.Technologies))
		fmt.Fprintf(w, "  %s\n", strings.Join(r.Technologies, ", "))
	}
	if r.Framing != nil {
		renderFramingSection(w, r.Framing)
	}
	if r.Methods != nil {
		renderMethodsSection(w, r.Methods)
	}
	if r.Secrets != nil {
		renderSecretsSection(w, r.Secrets)
	}
	if r.Notes != "" {
		fmt.Fprintf(w, "  %s %s\n", colorWarn("Notes:"), r.Notes)
	}
}

func renderHeaderSections(w io.Writer, res *headers.Result) {
	section(w, "Missing", len(res.Missing))
	if len(res.Missing) > 0 {
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "  HEADER\tRECOMMENDED")
		for _, m := range res.Missing {
			fmt.Fprintf(tw, "  %s\t%s\n", m.Name, m.Recommended)
		}
		tw.Flush()
	}

	section(w, "Misconfigured", len(res.Misconfigured))
	if len(res.Misconfigured) > 0 {
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "  HEADER\tCURRENT\tISSUE")
		for _, m := range res.Misconfigured {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Name, truncate(m.Current, 60), m.Issue)
		}
		tw.Flush()
	}

	section(w, "Sensitive Disclosed", len(res.SensitiveDisclosed))
	renderEntries(w, res.SensitiveDisclosed)

	section(w, "All Headers", len(res.All))
	renderEntries(w, res.All)
}

func renderEntries(w io.Writer, entries []headers.Entry) {
	if len(entries) == 0 {
		return
	}
	tw := newTabWriter(w)
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%s\n", e.Name, truncate(e.Value, 80))
	}
	tw.Flush()
}

func renderFramingSection(w io.Writer, f *checker.FramingAssessment) {
	fmt.Fprintf(w, "%s %s (%s)\n", colorHeading("Clickjacking:"), formatVerdictWithColor(f.Verdict), f.Method)
	fmt.Fprintf(w, "  Reason:           %s\n", f.Reason)
	fmt.Fprintf(w, "  X-Frame-Options:  %s\n", f.XFrameOptions)
	fmt.Fprintf(w, "  CSP:              %s\n", truncate(f.CSP, 80))
}

func renderMethodsSection(w io.Writer, m *checker.MethodScan) {
	section(w, "HTTP Methods", len(m.Results))
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "  METHOD\tALLOWED\tSTATUS")
	for _, r := range m.Results {
		allowed := "no"
		if r.Allowed {
			allowed = colorWarn("yes")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Method, allowed, r.Status)
	}
	tw.Flush()
	if len(m.RiskyAllowed) > 0 {
		fmt.Fprintf(w, "  %s %s\n", colorError("Risky methods allowed:"), strings.Join(m.RiskyAllowed, ", "))
	}
}

func renderSecretsSection(w io.Writer, s *checker.SecretScan) {
	section(w, "Sensitive Data", s.Total())
	fmt.Fprintf(w, "  Scripts scanned: %d (skipped %d)\n", len(s.Scripts)-len(s.Skipped), len(s.Skipped))
	for _, g := range s.Groups {
		fmt.Fprintf(w, "  %s (%d)\n", colorWarn(g.Type), len(g.Findings))
		tw := newTabWriter(w)
		for _, f := range g.Findings {
			fmt.Fprintf(tw, "    %s\t%s\n", truncate(f.Value, 60), f.Location)
		}
		tw.Flush()
	}
}

func section(w io.Writer, title string, count int) {
	fmt.Fprintf(w, "%s %s\n", colorHeading(title+":"), formatCountWithColor(count))
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func flag(ok bool) string {
	if ok {
		return colorSuccess("yes")
	}
	return colorError("no")
}

// truncate shortens s to at most max runes, ending in "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return strings.Repeat(".", max)
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

func generatePDFReportBytes(output *RunOutput) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; map UTF-8 input so non-ASCII header values survive
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "HTTP Security Header Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	meta := output.Metadata
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Operator: %s", tr(meta.Operator)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Command: %s", meta.Command), "", 1, "", false, 0, "")
	if meta.RunID != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Run ID: %s", meta.RunID), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", formatShortTimestamp(meta.StartAt)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s", formatShortTimestamp(meta.CompleteAt)), "", 1, "", false, 0, "")
	okCount, errorCount := summarizeStatuses(output.Results)
	pdf.CellFormat(0, 6, fmt.Sprintf("Targets: %d | Success: %d | Errors: %d", len(output.Results), okCount, errorCount), "", 1, "", false, 0, "")
	pdf.Ln(5)

	for _, r := range output.Results {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %s", r.Target, strings.ToUpper(r.Status))), "", 1, "", true, 0, "")
		pdf.Ln(1)

		if r.Error != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(0, 4, tr("Error: "+r.Error), "", "", false)
			pdf.Ln(3)
			continue
		}

		if r.Headers != nil {
			c := r.Headers.Counts()
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 5, fmt.Sprintf("HTTP %d | Missing: %d | Misconfigured: %d | Sensitive: %d | Headers: %d",
				r.HTTPStatus, c.Missing, c.Misconfigured, c.Sensitive, c.Total), "", 1, "", false, 0, "")

			pdfList(pdf, tr, "Missing", len(r.Headers.Missing), func(i int) string {
				m := r.Headers.Missing[i]
				return fmt.Sprintf("%s (recommended: %s)", m.Name, m.Recommended)
			})
			pdfList(pdf, tr, "Misconfigured", len(r.Headers.Misconfigured), func(i int) string {
				m := r.Headers.Misconfigured[i]
				return fmt.Sprintf("%s: %s", m.Name, m.Issue)
			})
			pdfList(pdf, tr, "Sensitive Disclosed", len(r.Headers.SensitiveDisclosed), func(i int) string {
				e := r.Headers.SensitiveDisclosed[i]
				return fmt.Sprintf("%s: %s", e.Name, e.Value)
			})
		}
		pdfList(pdf, tr, "Possible Misspellings", len(r.Misspellings), func(i int) string {
			m := r.Misspellings[i]
			return fmt.Sprintf("%s -> %s", m.Name, m.Suggested)
		})
		if r.Framing != nil {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(0, 5, fmt.Sprintf("Clickjacking: %s (%s)", r.Framing.Verdict, r.Framing.Method), "", 1, "", false, 0, "")
			pdf.SetFont("Arial", "", 8)
			pdf.MultiCell(0, 4, tr("  "+r.Framing.Reason), "", "", false)
		}
		if r.Methods != nil {
			allowed := make([]string, 0)
			for _, m := range r.Methods.Results {
				if m.Allowed {
					allowed = append(allowed, m.Method)
				}
			}
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(0, 5, fmt.Sprintf("Allowed methods: %s", strings.Join(allowed, ", ")), "", 1, "", false, 0, "")
		}
		if r.Secrets != nil {
			for _, g := range r.Secrets.Groups {
				pdfList(pdf, tr, "Sensitive data: "+g.Type, len(g.Findings), func(i int) string {
					f := g.Findings[i]
					return fmt.Sprintf("%s (%s)", truncate(f.Value, 60), f.Location)
				})
			}
		}
		if r.Notes != "" {
			pdf.SetFont("Arial", "I", 8)
			pdf.MultiCell(0, 4, tr("Notes: "+r.Notes), "", "", false)
		}

		pdf.Ln(3) // Gap between targets
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfList(pdf *gofpdf.Fpdf, tr func(string) string, title string, n int, item func(int) string) {
	if n == 0 {
		return
	}
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s (%d):", title, n), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	for i := 0; i < n && i < pdfMaxFindings; i++ {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 4, tr("  - "+item(i)), "", "", false)
	}
	if n > pdfMaxFindings {
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 4, fmt.Sprintf("  ... %d more omitted ...", n-pdfMaxFindings), "", 1, "", false, 0, "")
	}
}
