package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errTokenRevoked = errors.New("token revoked")

type accessClaims struct {
	SessionID string `json:"sid"`
	jwtlib.RegisteredClaims
}

// tokenCreator signs HS256 access tokens. Clients treat them as opaque.
type tokenCreator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	issued  map[string]struct{}
	revoked map[string]struct{}
}

func newTokenCreator(ttl time.Duration, now func() time.Time) (*tokenCreator, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &tokenCreator{
		secret:  secret,
		ttl:     ttl,
		now:     now,
		issued:  make(map[string]struct{}),
		revoked: make(map[string]struct{}),
	}, nil
}

func (c *tokenCreator) CreateAccessToken(userID, sessionID string) (string, error) {
	now := c.now()
	jti := uuid.New().String()
	claims := accessClaims{
		SessionID: sessionID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.ttl)),
			ID:        jti,
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}

	c.mu.Lock()
	c.issued[jti] = struct{}{}
	c.mu.Unlock()
	return signed, nil
}

func (c *tokenCreator) Parse(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (interface{}, error) {
		return c.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(c.now))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.revoked[claims.ID]; ok {
		return nil, errTokenRevoked
	}
	return claims, nil
}

// RevokeIssued makes every token issued so far unusable.
func (c *tokenCreator) RevokeIssued() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for jti := range c.issued {
		c.revoked[jti] = struct{}{}
	}
	c.issued = make(map[string]struct{})
}

type storedRefreshToken struct {
	Token     string
	UserID    string
	SessionID string
	Iat       time.Time
}

// refreshManager handles opaque refresh token creation and lookup; one
// refresh token per session.
type refreshManager struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	tokens map[string]*storedRefreshToken
}

func newRefreshManager(ttl time.Duration, now func() time.Time) *refreshManager {
	return &refreshManager{
		ttl:    ttl,
		now:    now,
		tokens: make(map[string]*storedRefreshToken),
	}
}

func (m *refreshManager) Create(userID, sessionID string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenStr] = &storedRefreshToken{
		Token:     tokenStr,
		UserID:    userID,
		SessionID: sessionID,
		Iat:       m.now(),
	}
	return tokenStr, nil
}

// Get returns the stored token when it exists and has not expired.
func (m *refreshManager) Get(token string) (*storedRefreshToken, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.tokens[token]
	if !ok || m.now().Sub(rt.Iat) > m.ttl {
		return nil, false
	}
	return rt, true
}

func (m *refreshManager) DeleteSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, rt := range m.tokens {
		if rt.SessionID == sessionID {
			delete(m.tokens, k)
		}
	}
}
