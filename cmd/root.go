package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppContext carries the per-invocation state shared by all subcommands.
type AppContext struct {
	Logger     *zap.SugaredLogger
	Operator   string
	ResultsDir string
}

var (
	cfgFile          string
	operator         string
	verbose          bool
	globalAppContext *AppContext
)

var rootCmd = &cobra.Command{
	Use:           "seca-headers",
	Short:         "HTTP security header auditing (for authorized testing only)",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables take precedence
		_ = godotenv.Load()

		if err := initConfig(); err != nil {
			return err
		}
		applyConfigDefaults(cmd)

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if operator == "" {
			operator = cliConfig.Defaults.Operator
		}
		if operator == "" {
			return fmt.Errorf("operator identity is required (use --operator or set USER env)")
		}

		resultsDir, err := resolveResultsDir()
		if err != nil {
			return err
		}

		logger.Debugw("starting", "command", cmd.CommandPath(), "operator", operator, "results_dir", resultsDir)

		storeAppContext(cmd, &AppContext{
			Logger:     logger,
			Operator:   operator,
			ResultsDir: resultsDir,
		})
		return nil
	},
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".seca-headers")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SECA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// an explicit --config must exist; the default location may not
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

// newLogger writes to stderr so that reports on stdout stay machine-readable.
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func resolveResultsDir() (string, error) {
	dir := viper.GetString("results_dir")
	if dir == "" {
		var err error
		dir, err = getResultsDir()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir, nil
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if globalAppContext == nil {
		l, _ := newLogger(false)
		globalAppContext = &AppContext{Logger: l, Operator: operator}
	}
	return globalAppContext
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-headers.yaml)")
	rootCmd.PersistentFlags().StringVarP(&operator, "operator", "o", detectOperatorFromEnv(), "operator name (or set via USER env)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable development logging")
	rootCmd.PersistentFlags().String("format", formatTable, "output format: table, json, yaml, markdown, pdf")
	rootCmd.PersistentFlags().String("output", "", "write the report to this file instead of stdout")
	rootCmd.PersistentFlags().Int("timeout", defaultHTTPTimeoutSeconds, "per-request timeout in seconds")

	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(clickjackCmd)
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(versionCmd)
}
