package session

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an operation needs a live token and
// the session has none.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthenticationError is an OAuth error response from the authorization server.
type AuthenticationError struct {
	Code        string
	Description string
}

func (e *AuthenticationError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authentication failed: %s", e.Code)
	}
	return fmt.Sprintf("authentication failed: %s: %s", e.Code, e.Description)
}
