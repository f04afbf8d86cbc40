package transport

import (
	"fmt"
	"net/http"

	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
)

// APIError is a non-2xx response from the backend. Unwrap maps the status
// onto the SDK's failure kinds so callers can branch with errors.Is while
// still reaching the raw detail body for messaging.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperrors.ErrCredentialRejected
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return apperrors.ErrValidation
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Detail: string(body)}
}

// DispatchError is a failure to obtain any response at all (DNS, connect,
// timeout, cancelled context). It always matches apperrors.ErrNetwork.
type DispatchError struct {
	Method string
	Path   string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{apperrors.ErrNetwork, e.Err}
}
