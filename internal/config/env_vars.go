package config

import (
	"github.com/spf13/viper"
)

const (
	keyConfigFile  = "config"
	keyAppName     = "app_name"
	keyEnv         = "env"
	keyDataFolder  = "data_folder"
	keyLogLevel    = "log_level"
	keyCallbackURL = "callback_url"
	keyMetricsAddr = "metrics_addr"

	defaultAppName    = "Budget Tracker"
	defaultEnv        = "DEV"
	defaultDataFolder = "./data"
	defaultLogLevel   = "info"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(keyAppName)
}

func (e EnvVars) GetEnv() string {
	env := e.v.GetString(keyEnv)
	if env == "" {
		return defaultEnv
	}
	return env
}

// GetDataFolder is where the durable user identity file lives.
func (e EnvVars) GetDataFolder() string {
	return e.v.GetString(keyDataFolder)
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(keyLogLevel)
}

// GetCallbackURL returns the oauth callback URL handed to the client, if any.
func (e EnvVars) GetCallbackURL() string {
	return e.v.GetString(keyCallbackURL)
}

// GetMetricsAddr is the listen address of the prometheus endpoint. Empty disables it.
func (e EnvVars) GetMetricsAddr() string {
	return e.v.GetString(keyMetricsAddr)
}
