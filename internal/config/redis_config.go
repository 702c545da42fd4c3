package config

import "github.com/spf13/viper"

const (
	redisAddrVar = "REDIS_ADDR"
	redisDBVar   = "REDIS_DB"
	redisKeyVar  = "REDIS_TOKEN_KEY"
)

// RedisConfig is only consulted by authctl, which can keep its credential in Redis.
type RedisConfig interface {
	GetRedisAddr() string
	GetRedisDB() int
	GetRedisTokenKey() string
}

type Redis struct {
	v *viper.Viper
}

var _ RedisConfig = Redis{}

func (r Redis) GetRedisAddr() string {
	return r.v.GetString(redisAddrVar)
}

func (r Redis) GetRedisDB() int {
	return r.v.GetInt(redisDBVar)
}

func (r Redis) GetRedisTokenKey() string {
	return r.v.GetString(redisKeyVar)
}
