package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	accessCookieVar = "ACCESS_TOKEN_COOKIE"
	accessMaxAgeVar = "ACCESS_TOKEN_MAX_AGE"
)

type CookieConfig interface {
	GetAccessTokenCookie() string
	GetAccessTokenMaxAge() time.Duration
}

type Cookies struct {
	v *viper.Viper
}

var _ CookieConfig = Cookies{}

func (c Cookies) GetAccessTokenCookie() string {
	return c.v.GetString(accessCookieVar)
}

func (c Cookies) GetAccessTokenMaxAge() time.Duration {
	d := c.v.GetDuration(accessMaxAgeVar)
	if d <= 0 {
		return time.Hour
	}
	return d
}
