package credentials

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/authfront/internal/errors"
	"golang.org/x/oauth2"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store. The slot expires after maxAge like
// the browser cookie it stands in for.
type MemoryStore struct {
	mu      sync.RWMutex
	token   *oauth2.Token
	maxAge  time.Duration
	nowTime func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMaxAge sets how long a stored token stays present. Zero keeps it forever.
func WithMaxAge(maxAge time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.maxAge = maxAge
	}
}

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.nowTime = nowFunc
	}
}

func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		maxAge:  DefaultMaxAge,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Token() (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil || expired(s.token, s.nowTime()) {
		return nil, false
	}
	tok := *s.token
	return &tok, true
}

func (s *MemoryStore) SetToken(accessToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}
	tok := newToken(accessToken, s.maxAge, s.nowTime())

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
	return nil
}
