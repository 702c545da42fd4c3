package refresh

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/authfront/transport"
)

// AuthTokenNotFound is the error code the API uses for a missing or expired access token.
const AuthTokenNotFound = "AUTH_TOKEN_NOT_FOUND"

// ErrNoTokenInResponse is returned when the refresh endpoint succeeds without issuing a token.
var ErrNoTokenInResponse = errors.New("refresh response carried no access token")

// AuthExpiredError is the recoverable failure signature: status 401 with AUTH_TOKEN_NOT_FOUND.
type AuthExpiredError struct {
	Cause *transport.TransportError
}

func (e *AuthExpiredError) Error() string {
	return "access token expired: " + e.Cause.Error()
}

func (e *AuthExpiredError) Unwrap() error {
	return e.Cause
}

// AsAuthExpired classifies err. It matches the exact (401, AUTH_TOKEN_NOT_FOUND) pair only.
func AsAuthExpired(err error) (*AuthExpiredError, bool) {
	var rf *RefreshFailedError
	if errors.As(err, &rf) {
		return nil, false // already past recovery
	}
	var te *transport.TransportError
	if !errors.As(err, &te) {
		return nil, false
	}
	if te.Status != 401 || te.ErrorCode() != AuthTokenNotFound {
		return nil, false
	}
	return &AuthExpiredError{Cause: te}, true
}

// IsAuthExpired reports whether err is the recoverable failure signature.
func IsAuthExpired(err error) bool {
	_, ok := AsAuthExpired(err)
	return ok
}

// RefreshFailedError means the session cannot be recovered; the caller must
// send the user to Target. The credential store has already been cleared.
type RefreshFailedError struct {
	Target string
	Err    error
}

func (e *RefreshFailedError) Error() string {
	return fmt.Sprintf("token refresh failed, redirect to %s: %v", e.Target, e.Err)
}

func (e *RefreshFailedError) Unwrap() error {
	return e.Err
}
