package cmd

import (
	"strings"

	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/spf13/cobra"
)

var methodsCmd = &cobra.Command{
	Use:   "methods <target>",
	Short: "Enumerate the HTTP methods a target accepts",
	Long: `Send each HTTP method to the target with redirects disabled. A method
is reported as allowed only when the response is 2xx. Allowed methods
that enable tracing or content modification are flagged as risky.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := cleanTargets(args)
		if err != nil {
			return err
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		only, _ := cmd.Flags().GetStringSlice("only")
		save, _ := cmd.Flags().GetBool("save")

		methods := checker.HTTPMethods
		if len(only) > 0 {
			methods = make([]string, 0, len(only))
			for _, m := range only {
				if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
					methods = append(methods, m)
				}
			}
		}

		output, err := executeRun(cmd, runOptions{
			command: "methods",
			targets: targets,
			checker: &checker.MethodChecker{
				Timeout:     requestTimeout(cmd),
				UserAgent:   userAgent(),
				Concurrency: concurrency,
				RateLimit:   rateLimit,
				Methods:     methods,
			},
			save:      save,
			unbounded: true,
		})
		if err != nil {
			return err
		}
		if err := writeReport(cmd, output); err != nil {
			return err
		}
		return allFailed(output.Results)
	},
}

func init() {
	methodsCmd.Flags().StringSlice("only", nil, "probe only these methods instead of the full list")
	addRunFlags(methodsCmd)
	// the per-method pool is what matters here; the run has one target
	methodsCmd.Flags().Lookup("concurrency").Usage = "max concurrent method probes"
	methodsCmd.Flags().Lookup("rate-limit").Usage = "method probes per second (0 = unlimited)"
}
