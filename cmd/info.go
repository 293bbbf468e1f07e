package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/khanhnv2901/seca-headers/internal/headers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, data directory paths and the header rule table",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		resultsExists := "✗ (not created yet)"
		if _, err := os.Stat(appCtx.ResultsDir); err == nil {
			resultsExists = "✓ (exists)"
		}

		configPath := getConfigFilePath(viper.ConfigFileUsed())
		configExists := "✗ (using defaults)"
		if _, err := os.Stat(configPath); err == nil {
			configExists = "✓ (exists)"
		}

		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "seca-headers System Information")
		fmt.Fprintln(out, "==============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Operator:          %s\n", appCtx.Operator)
		fmt.Fprintf(out, "User-Agent:        %s\n", cliConfig.Defaults.UserAgent)
		fmt.Fprintf(out, "Timeout:           %ds\n", cliConfig.Defaults.TimeoutSecs)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Results Directory:  %s %s\n", appCtx.ResultsDir, resultsExists)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configPath, configExists)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Expected security headers:")
		for _, spec := range headers.SecurityHeaders() {
			fmt.Fprintf(out, "  %-36s %s\n", spec.Name, spec.Recommended)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To override the results directory, create ~/.seca-headers.yaml with:")
		fmt.Fprintln(out, "  results_dir: /custom/path/to/results")
		fmt.Fprintln(out, "or export SECA_RESULTS_DIR.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
