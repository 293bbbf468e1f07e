package cmd

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/khanhnv2901/seca-headers/internal/checker"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorHeading = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}

func formatVerdictWithColor(verdict string) string {
	switch verdict {
	case checker.VerdictProtected:
		return colorSuccess(verdict)
	case checker.VerdictVulnerable:
		return colorError(verdict)
	case checker.VerdictInconclusive:
		return colorWarn(verdict)
	default:
		return verdict
	}
}

// formatCountWithColor highlights non-zero finding counts.
func formatCountWithColor(n int) string {
	if n == 0 {
		return colorSuccess("0")
	}
	return colorWarn(strconv.Itoa(n))
}
