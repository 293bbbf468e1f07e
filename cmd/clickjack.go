package cmd

import (
	"github.com/khanhnv2901/seca-headers/internal/checker"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"github.com/spf13/cobra"
)

var clickjackCmd = &cobra.Command{
	Use:   "clickjack [targets...]",
	Short: "Check whether targets can be embedded in a frame",
	Long: `Assess clickjacking protection from X-Frame-Options and the CSP
frame-ancestors directive. With --browser, targets whose headers are
inconclusive are loaded into an iframe in headless Chrome and the frame
tree decides the verdict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := cleanTargets(args)
		if err != nil {
			return err
		}
		browser, _ := cmd.Flags().GetBool("browser")
		frameWait, _ := cmd.Flags().GetDuration("frame-wait")
		chromePath, _ := cmd.Flags().GetString("chrome-path")
		save, _ := cmd.Flags().GetBool("save")
		progress, _ := cmd.Flags().GetBool("progress")

		chk := &checker.ClickjackChecker{
			Timeout:   requestTimeout(cmd),
			UserAgent: userAgent(),
		}
		if browser {
			chk.Prober = &checker.BrowserFrameProber{Wait: frameWait, ExecPath: chromePath}
		}

		output, err := executeRun(cmd, runOptions{
			command:  "clickjack",
			targets:  targets,
			checker:  chk,
			save:     save,
			progress: progress,
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
	clickjackCmd.Flags().Bool("browser", false, "confirm inconclusive verdicts with a headless Chrome frame probe")
	clickjackCmd.Flags().Duration("frame-wait", consts.FrameProbeTimeout, "how long the browser probe waits for the frame")
	clickjackCmd.Flags().String("chrome-path", "", "Chrome/Chromium binary for --browser (default: auto-detect)")
	addRunFlags(clickjackCmd)
}
