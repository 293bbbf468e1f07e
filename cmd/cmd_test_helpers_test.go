package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetCommandFlags restores every flag in the tree to its default so tests
// can execute rootCmd repeatedly.
func resetCommandFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetCommandFlags(child)
	}
}

// executeCommand runs the CLI in-process with an isolated results dir.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resultsDir := t.TempDir()
	t.Setenv("SECA_RESULTS_DIR", resultsDir)
	t.Setenv("HOME", t.TempDir())

	viper.Reset()
	resetCommandFlags(rootCmd)
	originalCtx, originalCfg := globalAppContext, cliConfig
	cliConfig = newCLIConfig()
	t.Cleanup(func() {
		globalAppContext, cliConfig = originalCtx, originalCfg
		viper.Reset()
		resetCommandFlags(rootCmd)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--operator", "tester"}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

// getenvResultsDir returns the absolute results dir executeCommand set up.
func getenvResultsDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(os.Getenv("SECA_RESULTS_DIR"))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}
