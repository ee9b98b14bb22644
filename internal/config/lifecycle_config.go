package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	keyTickInterval     = "lifecycle.tick_interval"
	keyStatusStaleTime  = "lifecycle.status_stale_time"
	keyRenewalThreshold = "lifecycle.renewal_threshold"

	defaultTickInterval     = 15 * time.Second
	defaultStatusStaleTime  = 30 * time.Second
	defaultRenewalThreshold = 10 * time.Minute
)

type LifecycleConfig interface {
	GetTickInterval() time.Duration
	GetStatusStaleTime() time.Duration
	GetRenewalThreshold() time.Duration
}

type Lifecycle struct {
	v *viper.Viper
}

var _ LifecycleConfig = Lifecycle{}

func (l Lifecycle) GetTickInterval() time.Duration {
	return l.v.GetDuration(keyTickInterval)
}

// GetStatusStaleTime is how long a remote auth status answer is trusted before it is polled again.
func (l Lifecycle) GetStatusStaleTime() time.Duration {
	return l.v.GetDuration(keyStatusStaleTime)
}

// GetRenewalThreshold is how close to expiry a token must be before it is proactively renewed.
func (l Lifecycle) GetRenewalThreshold() time.Duration {
	return l.v.GetDuration(keyRenewalThreshold)
}
