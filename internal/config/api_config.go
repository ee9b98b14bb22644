package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyBaseURL        = "base_url"
	keyRequestTimeout = "request_timeout"

	defaultBaseURL        = "http://localhost:8080"
	defaultRequestTimeout = 30 * time.Second
)

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetBaseURL returns the API base URL without a trailing slash (e.g., "https://budget.example.com")
func (a API) GetBaseURL() string {
	return strings.TrimRight(a.v.GetString(keyBaseURL), "/")
}

// GetRequestTimeout bounds dashboard and status requests. Refresh has its own timeout.
func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration(keyRequestTimeout)
}
