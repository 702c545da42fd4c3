package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	apiBaseURLVar  = "API_BASE_URL"
	apiTimeoutVar  = "API_TIMEOUT"
	refreshPathVar = "API_REFRESH_PATH"

	defaultAPITimeout = 10 * time.Second
)

// APIConfig describes how to reach the upstream authentication API.
type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetRefreshPath() string
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.v.GetString(apiBaseURLVar), "/")
}

// GetAPITimeout bounds every upstream call, including refresh and replay.
func (a API) GetAPITimeout() time.Duration {
	d := a.v.GetDuration(apiTimeoutVar)
	if d <= 0 {
		return defaultAPITimeout
	}
	return d
}

func (a API) GetRefreshPath() string {
	return a.v.GetString(refreshPathVar)
}
