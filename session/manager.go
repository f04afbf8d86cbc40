package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/jamsesh/go-jamsesh-client/credentials"
	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
	"github.com/jamsesh/go-jamsesh-client/transport"
	"github.com/jamsesh/go-jamsesh-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	loginPath    = "/users/login/"
	registerPath = "/users/register/"
)

// Manager orchestrates login, registration, federated login, logout and
// startup restoration. It is the sole writer of the process session and of
// the credential store's login-time writes (the pipeline owns refresh-time
// writes).
type Manager struct {
	client *transport.Client
	store  credentials.Store
	logger zerolog.Logger

	lock      sync.RWMutex
	current   Session
	listeners []func(Session)
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for session events.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager initializes a Manager with required dependencies and registers
// itself as the client's auth-loss handler, so a failed refresh in the
// pipeline forces the session to Anonymous in the same stroke as the
// credential erasure.
func NewManager(client *transport.Client, store credentials.Store, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}

	manager := &Manager{
		client:  client,
		store:   store,
		logger:  zerolog.Nop(),
		current: Session{Status: StatusUninitialized},
	}

	for _, opt := range options {
		opt(manager)
	}

	client.OnAuthLost(manager.handleAuthLost)
	return manager, nil
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.current
}

// OnChange registers a listener invoked with a snapshot after every session
// transition. Listeners must not call back into the Manager.
func (m *Manager) OnChange(fn func(Session)) {
	if fn == nil {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Restore resolves the stored credential pair into a session at process
// start. With no stored access credential it settles to Anonymous without
// any network call; otherwise the credential is validated against
// /users/me/ and any failure (including a failed refresh inside the
// pipeline) erases both tokens and settles to Anonymous. Restore must be
// called exactly once, before session-dependent work begins; a second call
// returns apperrors.ErrAlreadyRestored.
func (m *Manager) Restore(ctx context.Context) error {
	m.lock.Lock()
	if m.current.Status != StatusUninitialized {
		m.lock.Unlock()
		return apperrors.ErrAlreadyRestored
	}
	m.current = Session{Status: StatusRestoring}
	m.lock.Unlock()
	m.notify()

	access, ok, readErr := credentials.Read(m.store, credentials.AccessKey)
	if readErr != nil {
		m.logger.Warn().Err(readErr).Msg("credential store unreadable, restoring as anonymous")
	}
	if !ok || access == "" {
		m.setSession(Session{Status: StatusAnonymous})
		return nil
	}

	user, err := m.me(ctx)
	if err != nil {
		m.logger.Info().Err(err).Msg("stored credentials rejected, restoring as anonymous")
		if clearErr := credentials.Clear(m.store); clearErr != nil {
			m.logger.Err(clearErr).Msg("clearing rejected credentials")
		}
		m.setSession(Session{Status: StatusAnonymous})
		return nil
	}

	m.setSession(Session{User: user, Status: StatusAuthenticated})
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges a username and password for a credential pair and settles
// the session to Authenticated. On a rejected login nothing is persisted and
// the session is left unchanged.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	var pair tokenPair
	if err := m.client.Post(ctx, loginPath, loginRequest{Username: username, Password: password}, &pair); err != nil {
		return errors.Wrap(err, "[Manager.Login] login request")
	}
	return m.establish(ctx, pair)
}

// Register creates an account and logs in with the same credentials. A
// registration failure (validation error, duplicate username) is surfaced
// verbatim and never followed by a login attempt.
func (m *Manager) Register(ctx context.Context, username, email, password, passwordConfirm string) error {
	body := registerRequest{Username: username, Email: email, Password: password, Password2: passwordConfirm}
	if err := m.client.Post(ctx, registerPath, body, nil); err != nil {
		return errors.Wrap(err, "[Manager.Register] register request")
	}
	return m.Login(ctx, username, password)
}

// Logout erases both credentials and settles the session to Anonymous. No
// network call is involved; a storage failure is logged, not surfaced, since
// the in-memory session is gone either way.
func (m *Manager) Logout() {
	if err := credentials.Clear(m.store); err != nil {
		m.logger.Err(err).Msg("clearing credentials on logout")
	}
	m.setSession(Session{Status: StatusAnonymous})
}

// RefreshProfile re-fetches the profile of an authenticated session and
// replaces the user record without touching the status. Used after profile
// mutations.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	if m.Session().Status != StatusAuthenticated {
		return apperrors.ErrNotAuthenticated
	}
	user, err := m.me(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.RefreshProfile] fetch profile")
	}
	m.setSession(Session{User: user, Status: StatusAuthenticated})
	return nil
}

// establish is the shared post-token tail of every login flavour: persist
// the pair, fetch the profile, settle to Authenticated. If the profile
// fetch fails the persisted pair is deliberately left in place; the next
// Restore resolves it one way or the other.
func (m *Manager) establish(ctx context.Context, pair tokenPair) error {
	if err := credentials.SetPair(m.store, pair.Access, pair.Refresh); err != nil {
		return errors.Wrap(err, "[Manager.establish] persist credentials")
	}
	user, err := m.me(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.establish] fetch profile")
	}
	m.setSession(Session{User: user, Status: StatusAuthenticated})
	return nil
}

func (m *Manager) me(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := m.client.Do(ctx, transport.NewRequest(http.MethodGet, users.MePath, nil), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// handleAuthLost runs after the pipeline has erased both credentials on an
// irrecoverable refresh failure.
func (m *Manager) handleAuthLost() {
	m.logger.Info().Msg("session expired, forcing anonymous")
	m.setSession(Session{Status: StatusAnonymous})
}

func (m *Manager) setSession(next Session) {
	m.lock.Lock()
	m.current = next
	m.lock.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.lock.RLock()
	snapshot := m.current
	listeners := make([]func(Session), len(m.listeners))
	copy(listeners, m.listeners)
	m.lock.RUnlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
