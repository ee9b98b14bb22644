package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BUDGET"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	LifecycleConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
	GetCallbackURL() string
	GetMetricsAddr() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Lifecycle
}

var _ Config = mainConfig{}

// New returns a Config populated from defaults and BUDGET_* environment variables.
func New() Config {
	v := newViper()
	return newMainConfig(v)
}

// Load returns a Config that also honours command line flags and an optional
// config file (--config or BUDGET_CONFIG).
func Load(flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("[config Load] bind flag %s: %w", name, err)
			}
		}
	}

	if file := v.GetString(keyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("[config Load] read %s: %w", file, err)
		}
	}

	return newMainConfig(v), nil
}

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"config":        keyConfigFile,
	"base-url":      keyBaseURL,
	"data-folder":   keyDataFolder,
	"log-level":     keyLogLevel,
	"callback-url":  keyCallbackURL,
	"tick-interval": keyTickInterval,
	"metrics-addr":  keyMetricsAddr,
}

// Flags registers the command line flags understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.String("base-url", defaultBaseURL, "base URL of the budget tracker API")
	fs.String("data-folder", defaultDataFolder, "folder for persisted user identity")
	fs.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("callback-url", "", "oauth callback URL carrying token and user parameters")
	fs.Duration("tick-interval", defaultTickInterval, "interval between session checks")
	fs.String("metrics-addr", "", "listen address for prometheus metrics, e.g. :9090")
	return fs
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func newMainConfig(v *viper.Viper) mainConfig {
	return mainConfig{
		EnvVars:   EnvVars{v: v},
		API:       API{v: v},
		Session:   Session{v: v},
		Lifecycle: Lifecycle{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyAppName, defaultAppName)
	v.SetDefault(keyEnv, defaultEnv)
	v.SetDefault(keyDataFolder, defaultDataFolder)
	v.SetDefault(keyLogLevel, defaultLogLevel)

	v.SetDefault(keyBaseURL, defaultBaseURL)
	v.SetDefault(keyRequestTimeout, defaultRequestTimeout)

	v.SetDefault(keyDefaultTokenLifetime, defaultTokenLifetime)
	v.SetDefault(keyCallbackTokenLifetime, defaultCallbackTokenLifetime)
	v.SetDefault(keyMaxRefreshAttempts, defaultMaxRefreshAttempts)
	v.SetDefault(keyMinRefreshInterval, defaultMinRefreshInterval)
	v.SetDefault(keyRefreshTimeout, defaultRefreshTimeout)

	v.SetDefault(keyTickInterval, defaultTickInterval)
	v.SetDefault(keyStatusStaleTime, defaultStatusStaleTime)
	v.SetDefault(keyRenewalThreshold, defaultRenewalThreshold)
}
