// Package config loads the front end's settings from the environment and an
// optional .env file using Viper.
package config

import (
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	RouteConfig
	CookieConfig
	RedisConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsProduction() bool
}

type mainConfig struct {
	EnvVars
	API
	Routes
	Cookies
	Redis
}

// New reads .env (if present) and the process environment. Env vars override .env.
func New() Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config over an existing Viper instance, applying defaults.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Routes:  Routes{v: v},
		Cookies: Cookies{v: v},
		Redis:   Redis{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "8080")
	v.SetDefault(appNameVar, "Auth Front")
	v.SetDefault(envVar, "DEV")

	v.SetDefault(apiBaseURLVar, "http://localhost:8000/api/v1")
	v.SetDefault(apiTimeoutVar, "10s")
	v.SetDefault(refreshPathVar, "/auth/refresh")

	v.SetDefault(protectedRoutesVar, "/home,/sessions")
	v.SetDefault(publicRoutesVar, "/,/signup,/confirm-account,/forgot-password,/reset-password,/verify-mfa")
	v.SetDefault(entryPathVar, "/")
	v.SetDefault(homePathVar, "/home")

	v.SetDefault(accessCookieVar, "accessToken")
	v.SetDefault(accessMaxAgeVar, "1h")

	v.SetDefault(redisAddrVar, "")
	v.SetDefault(redisDBVar, 0)
	v.SetDefault(redisKeyVar, "authfront:access-token")
}
