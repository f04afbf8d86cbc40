// Package transport is the request pipeline every API call goes through. It
// attaches the stored access credential as a bearer header, and recovers from
// an expired credential by refreshing and re-dispatching the original request
// exactly once, so a non-idempotent call is never duplicated beyond "send
// once, maybe refresh, send the same payload once more".
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jamsesh/go-jamsesh-client/credentials"
	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshPath = "/users/token/refresh/"

const defaultTimeout = 15 * time.Second

// Client dispatches requests against the backend. It reads the credential
// store on every dispatch and writes it only for refresh outcomes: the new
// access token on success, erasure of both tokens on failure. It never
// touches session state directly; an auth-loss handler is invoked instead so
// the session manager can transition to Anonymous in step with the erasure.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	store        credentials.Store
	logger       zerolog.Logger
	refreshGroup singleflight.Group
	onAuthLost   func()
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests
// and custom transport settings).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger used for pipeline events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New initializes a Client with required dependencies. Optional configuration
// can be provided via options.
func New(baseURL string, store credentials.Store, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[transport.New] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[transport.New] credential store is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
		logger:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// OnAuthLost registers the handler invoked after an irrecoverable refresh
// failure, once both credentials have been erased. Must be called before the
// client is shared between goroutines.
func (c *Client) OnAuthLost(fn func()) {
	c.onAuthLost = fn
}

// Do runs req through the pipeline and decodes a 2xx JSON response into out
// (out may be nil to discard the body).
//
// On a 401 response, if req has not been retried and a refresh credential is
// stored, the pipeline refreshes the access credential and re-dispatches req
// once; concurrent refreshes are coalesced into a single upstream call. If
// the refresh itself fails, both credentials are erased, the auth-loss
// handler runs, and the caller observes the original 401, not the refresh
// failure. All other failures are surfaced unmodified and never retried.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if req == nil {
		return errors.New("[Client.Do] request is required")
	}

	status, body, err := c.dispatch(ctx, req)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !req.retried {
		refreshToken, ok, readErr := credentials.Read(c.store, credentials.RefreshKey)
		if readErr != nil {
			c.logger.Debug().Err(readErr).Str("request_id", req.id).Msg("refresh credential unreadable, treating as absent")
		}
		if ok {
			req.retried = true
			if refreshErr := c.refreshAccess(ctx, refreshToken); refreshErr != nil {
				c.logger.Warn().Err(refreshErr).Str("request_id", req.id).Msg("refresh failed, expiring session")
				c.expireSession()
				return newAPIError(status, body)
			}
			status, body, err = c.dispatch(ctx, req)
			if err != nil {
				return err
			}
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return newAPIError(status, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(err, "[Client.Do] decode %s %s response", req.Method, req.Path)
		}
	}
	return nil
}

// Get dispatches a GET request through the pipeline.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, NewRequest(http.MethodGet, path, nil), out)
}

// Post dispatches a POST request through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, NewRequest(http.MethodPost, path, body), out)
}

// Patch dispatches a PATCH request through the pipeline.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, NewRequest(http.MethodPatch, path, body), out)
}

// Delete dispatches a DELETE request through the pipeline.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, NewRequest(http.MethodDelete, path, nil), nil)
}

// dispatch performs a single HTTP round trip: attach the current access
// credential, send, drain the body. It never interprets the status beyond
// returning it.
func (c *Client) dispatch(ctx context.Context, req *Request) (int, []byte, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "[Client.dispatch] encode %s %s body", req.Method, req.Path)
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "[Client.dispatch] build %s %s", req.Method, req.Path)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = values
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if access, ok, readErr := credentials.Read(c.store, credentials.AccessKey); ok {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	} else if readErr != nil {
		c.logger.Debug().Err(readErr).Str("request_id", req.id).Msg("access credential unreadable, dispatching anonymously")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, &DispatchError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &DispatchError{Method: req.Method, Path: req.Path, Err: err}
	}

	c.logger.Debug().
		Str("request_id", req.id).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Bool("retried", req.retried).
		Msg("dispatched")

	return resp.StatusCode, body, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// refreshAccess exchanges the refresh credential for a new access credential
// and persists it before returning. Concurrent callers share a single
// in-flight exchange; each still counts its own retry against the
// single-retry contract.
func (c *Client) refreshAccess(ctx context.Context, refreshToken string) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx, refreshToken)
	})
	return err
}

func (c *Client) doRefresh(ctx context.Context, refreshToken string) error {
	req := NewRequest(http.MethodPost, refreshPath, refreshRequest{Refresh: refreshToken})
	status, body, err := c.dispatch(ctx, req)
	if err != nil {
		return errors.Wrap(err, "[Client.doRefresh] dispatch")
	}
	if status != http.StatusOK {
		return apperrors.Wrapf(apperrors.ErrRefreshRejected, "[Client.doRefresh] status %d", status)
	}

	var out refreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return apperrors.Wrapf(apperrors.ErrRefreshRejected, "[Client.doRefresh] decode response: %v", err)
	}
	if out.Access == "" {
		return apperrors.Wrapf(apperrors.ErrRefreshRejected, "[Client.doRefresh] empty access token")
	}

	// Persist before the retry is dispatched so a crash between the two
	// leaves the fresh token on disk.
	if err := c.store.Set(credentials.AccessKey, out.Access); err != nil {
		return errors.Wrap(err, "[Client.doRefresh] persist access token")
	}
	return nil
}

// expireSession erases both credentials and notifies the session manager.
// The erasure and the status change must travel together: clearing tokens
// while the UI still believes it is authenticated leaves it talking to a
// dead session.
func (c *Client) expireSession() {
	if err := credentials.Clear(c.store); err != nil {
		c.logger.Err(err).Msg("clearing credentials after refresh failure")
	}
	if c.onAuthLost != nil {
		c.onAuthLost()
	}
}
