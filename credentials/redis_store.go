package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/authfront/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ Store = (*RedisStore)(nil)

const defaultRedisTimeout = 2 * time.Second

// RedisStore keeps the slot under a single Redis key whose TTL is the token
// lifetime, so a credential survives between CLI invocations.
type RedisStore struct {
	client  redis.UniversalClient
	key     string
	maxAge  time.Duration
	timeout time.Duration
	nowTime func() time.Time
}

func NewRedisStore(client redis.UniversalClient, key string, maxAge time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("[NewRedisStore] redis client is required")
	}
	if key == "" {
		return nil, errors.New("[NewRedisStore] key is required")
	}
	return &RedisStore{
		client:  client,
		key:     key,
		maxAge:  maxAge,
		timeout: defaultRedisTimeout,
		nowTime: time.Now,
	}, nil
}

func (s *RedisStore) Token() (*oauth2.Token, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Err(err).Str("key", s.key).Msg("failed to read access token")
		}
		return nil, false
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
		return nil, false
	}
	if expired(&tok, s.nowTime()) {
		return nil, false
	}
	return &tok, true
}

func (s *RedisStore) SetToken(accessToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}
	raw, err := json.Marshal(newToken(accessToken, s.maxAge, s.nowTime()))
	if err != nil {
		return fmt.Errorf("[RedisStore SetToken] marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// SET replaces the whole value in one command.
	if err := s.client.Set(ctx, s.key, raw, s.maxAge).Err(); err != nil {
		return fmt.Errorf("[RedisStore SetToken] %w", err)
	}
	return nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("[RedisStore Clear] %w", err)
	}
	return nil
}
