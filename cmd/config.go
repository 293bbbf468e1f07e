package cmd

import (
	"os"
	"strconv"

	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultHTTPTimeoutSeconds = 10
	defaultServeAddr          = "127.0.0.1:8080"
	defaultServeRateLimit     = 10
	defaultServeRateBurst     = 20
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Check    CheckRuntimeConfig
	Serve    ServeConfig
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs int
	Format      string
	UserAgent   string
	Operator    string
}

// CheckRuntimeConfig consolidates flag-driven settings for check commands.
type CheckRuntimeConfig struct {
	Concurrency int
	RateLimit   int
}

// ServeConfig holds the REST API listener settings.
type ServeConfig struct {
	Addr      string
	RateLimit int
	RateBurst int
}

type defaultOverrides struct {
	TimeoutSecs      *int
	Format           string
	UserAgent        string
	Operator         string
	OperatorOverride bool
	Concurrency      *int
	RateLimit        *int
	ServeAddr        string
	ServeRateLimit   *int
	ServeRateBurst   *int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs: defaultHTTPTimeoutSeconds,
			Format:      formatTable,
			UserAgent:   consts.DefaultUserAgent,
			Operator:    detectOperatorFromEnv(),
		},
		Check: CheckRuntimeConfig{
			Concurrency: 1,
			RateLimit:   1,
		},
		Serve: ServeConfig{
			Addr:      defaultServeAddr,
			RateLimit: defaultServeRateLimit,
			RateBurst: defaultServeRateBurst,
		},
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

func intOverride(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetInt(key)
	return &val
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{
		TimeoutSecs:    intOverride("defaults.timeout_secs"),
		Concurrency:    intOverride("check.concurrency"),
		RateLimit:      intOverride("check.rate_limit"),
		ServeRateLimit: intOverride("serve.rate_limit"),
		ServeRateBurst: intOverride("serve.rate_burst"),
	}

	if viper.IsSet("defaults.format") {
		overrides.Format = viper.GetString("defaults.format")
	}
	if viper.IsSet("defaults.user_agent") {
		overrides.UserAgent = viper.GetString("defaults.user_agent")
	}
	if viper.IsSet("defaults.operator") {
		overrides.Operator = viper.GetString("defaults.operator")
		overrides.OperatorOverride = true
	}
	if viper.IsSet("serve.addr") {
		overrides.ServeAddr = viper.GetString("serve.addr")
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()
	flags := cmd.Flags()

	if overrides.OperatorOverride && overrides.Operator != "" {
		cliConfig.Defaults.Operator = overrides.Operator
		setStringFlagIfUnset(flags, "operator", overrides.Operator)
	}

	if overrides.TimeoutSecs != nil {
		applyIntDefault(flags, "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Defaults.TimeoutSecs = v
			setIntFlagIfUnset(flags, "timeout", v)
		})
	}

	if overrides.Format != "" {
		cliConfig.Defaults.Format = overrides.Format
		setStringFlagIfUnset(flags, "format", overrides.Format)
	}

	if overrides.UserAgent != "" {
		cliConfig.Defaults.UserAgent = overrides.UserAgent
	}

	if overrides.Concurrency != nil {
		applyIntDefault(flags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Check.Concurrency = v
			setIntFlagIfUnset(flags, "concurrency", v)
		})
	}

	isServe := cmd.Name() == "serve"

	if overrides.RateLimit != nil && !isServe {
		applyIntDefault(flags, "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Check.RateLimit = v
			setIntFlagIfUnset(flags, "rate-limit", v)
		})
	}

	if overrides.ServeAddr != "" {
		cliConfig.Serve.Addr = overrides.ServeAddr
		setStringFlagIfUnset(flags, "addr", overrides.ServeAddr)
	}

	if overrides.ServeRateLimit != nil && isServe {
		applyIntDefault(flags, "rate-limit", *overrides.ServeRateLimit, func(v int) {
			cliConfig.Serve.RateLimit = v
			setIntFlagIfUnset(flags, "rate-limit", v)
		})
	}

	if overrides.ServeRateBurst != nil {
		applyIntDefault(flags, "rate-burst", *overrides.ServeRateBurst, func(v int) {
			cliConfig.Serve.RateBurst = v
			setIntFlagIfUnset(flags, "rate-burst", v)
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}

// setIntFlagIfUnset updates the flag's value without marking it Changed, so a
// later config pass can still replace it.
func setIntFlagIfUnset(flags *pflag.FlagSet, name string, value int) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(strconv.Itoa(value))
}
