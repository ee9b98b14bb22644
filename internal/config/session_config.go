package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	keyDefaultTokenLifetime  = "session.default_token_lifetime"
	keyCallbackTokenLifetime = "session.callback_token_lifetime"
	keyMaxRefreshAttempts    = "session.max_refresh_attempts"
	keyMinRefreshInterval    = "session.min_refresh_interval"
	keyRefreshTimeout        = "session.refresh_timeout"

	defaultTokenLifetime         = 30 * time.Minute
	defaultCallbackTokenLifetime = 30 * time.Minute
	defaultMaxRefreshAttempts    = 1 // one attempt per process lifetime
	defaultMinRefreshInterval    = 10 * time.Second
	defaultRefreshTimeout        = 5 * time.Second
)

type SessionConfig interface {
	GetDefaultTokenLifetime() time.Duration
	GetCallbackTokenLifetime() time.Duration
	GetMaxRefreshAttempts() int
	GetMinRefreshInterval() time.Duration
	GetRefreshTimeout() time.Duration
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetDefaultTokenLifetime is used when a token is installed without a lifetime.
func (s Session) GetDefaultTokenLifetime() time.Duration {
	return s.v.GetDuration(keyDefaultTokenLifetime)
}

// GetCallbackTokenLifetime is applied to tokens delivered through the oauth callback URL.
func (s Session) GetCallbackTokenLifetime() time.Duration {
	return s.v.GetDuration(keyCallbackTokenLifetime)
}

func (s Session) GetMaxRefreshAttempts() int {
	return s.v.GetInt(keyMaxRefreshAttempts)
}

func (s Session) GetMinRefreshInterval() time.Duration {
	return s.v.GetDuration(keyMinRefreshInterval)
}

func (s Session) GetRefreshTimeout() time.Duration {
	return s.v.GetDuration(keyRefreshTimeout)
}
