package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
	envVar     = "ENV"

	envProduction = "PRODUCTION"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.v.GetString(portEnvVar)
	if port != "" && port[0] != ':' {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameVar)
}

func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(strings.TrimSpace(e.v.GetString(envVar)))
	if env == "" {
		return "DEV"
	}
	return env
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (e EnvVars) IsProduction() bool {
	return e.GetEnv() == envProduction || e.GetEnv() == "PROD"
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
