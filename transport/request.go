package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// Request is the unit of work flowing through the pipeline. It is created
// per call and discarded after settlement; it must not be reused across
// calls. The retried flag enforces the single-retry contract: it starts
// false and is flipped at most once, when an authorization failure triggers
// the refresh protocol.
type Request struct {
	Method string
	Path   string // relative to the client's base URL, e.g. "/users/me/"
	Body   any    // JSON-encoded when non-nil
	Header http.Header

	id      string
	retried bool
}

// NewRequest creates a request with a fresh correlation ID.
func NewRequest(method, path string, body any) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Body:   body,
		Header: http.Header{},
		id:     uuid.New().String(),
	}
}

// ID returns the correlation ID attached to pipeline log events for this
// request.
func (r *Request) ID() string {
	return r.id
}
