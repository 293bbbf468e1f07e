package cmd

import (
	"github.com/khanhnv2901/seca-headers/internal/checker"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"github.com/spf13/cobra"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets <target>",
	Short: "Scan a page and its scripts for exposed credentials and PII",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := cleanTargets(args)
		if err != nil {
			return err
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		scriptTimeout, _ := cmd.Flags().GetDuration("script-timeout")
		save, _ := cmd.Flags().GetBool("save")

		output, err := executeRun(cmd, runOptions{
			command: "secrets",
			targets: targets,
			checker: &checker.SecretScanner{
				Timeout:       requestTimeout(cmd),
				ScriptTimeout: scriptTimeout,
				UserAgent:     userAgent(),
				Concurrency:   concurrency,
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
	secretsCmd.Flags().Duration("script-timeout", consts.ScriptFetchTimeout, "timeout for each external script fetch")
	addRunFlags(secretsCmd)
	secretsCmd.Flags().Lookup("concurrency").Usage = "max concurrent script downloads"
}
