package client

import (
	"errors"
	"fmt"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// HTTPError represents a non-2xx HTTP response from the API.
// When the body carried field errors they are kept in Errors and the error
// unwraps to them.
type HTTPError struct {
	StatusCode int
	Message    string
	Errors     domain.ValidationErrors
}

func (e *HTTPError) Error() string {
	if e.Errors != nil {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Errors.Error())
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the validation errors, if any, to errors.As.
func (e *HTTPError) Unwrap() error {
	if e.Errors == nil {
		return nil
	}
	return e.Errors
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// saveFailed records validation errors on the entity and returns them
// unwrapped; other failures are wrapped with op.
func saveFailed(dst *domain.ValidationErrors, op string, err error) error {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		*dst = verrs
		return verrs
	}
	return fmt.Errorf("%s: %w", op, err)
}
