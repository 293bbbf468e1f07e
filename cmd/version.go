package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via -ldflags)
// These default values indicate a development build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Display detailed version information for seca-headers",
	// version needs neither config nor an operator
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		detailed, _ := cmd.Flags().GetBool("verbose")
		format, _ := cmd.Flags().GetString("format")
		out := cmd.OutOrStdout()
		info := currentVersion()

		if format == formatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent(jsonPrefix, jsonIndent)
			return enc.Encode(info)
		}

		if detailed {
			fmt.Fprintf(out, `seca-headers version information:
  Version:    %s
  Git Commit: %s
  Build Date: %s
  Go Version: %s
  OS/Arch:    %s
  Compiler:   %s
`, info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform, runtime.Compiler)
			return nil
		}
		fmt.Fprintf(out, "seca-headers version %s\n", info.Version)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
}
