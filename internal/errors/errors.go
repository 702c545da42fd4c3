package errors

import (
	"errors"
	"fmt"
)

// Common error values for the front end
var (
	// Credential errors
	ErrEmptyAccessToken = errors.New("empty access token")

	// Transport errors
	ErrInvalidBaseURL = errors.New("invalid API base URL")
	ErrNilRequest     = errors.New("nil request")

	// Route table errors
	ErrInvalidRoute = errors.New("invalid route")
	ErrRouteOverlap = errors.New("route is both protected and public")

	// Session errors
	ErrEmptySessionID = errors.New("empty session id")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
