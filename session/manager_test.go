package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jamsesh/go-jamsesh-client/credentials"
	"github.com/jamsesh/go-jamsesh-client/credentials/storefakes"
	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
	"github.com/jamsesh/go-jamsesh-client/session"
	"github.com/jamsesh/go-jamsesh-client/transport"
	"github.com/stretchr/testify/require"
)

const (
	testUsername    = "alice"
	testPassword    = "correct"
	testEmail       = "alice@example.com"
	issuedAccess    = "tok1"
	refreshedAccess = "tok2"
	issuedRefresh   = "refresh-1"
	googleToken     = "google-assertion"
	takenUsername   = "taken"
)

// managerFixture wires a Manager against a fake backend speaking the
// original wire shapes. Token strings are opaque; the backend just tracks
// which ones it has issued.
type managerFixture struct {
	t       *testing.T
	server  *httptest.Server
	store   *storefakes.FakeStore
	client  *transport.Client
	manager *session.Manager

	lock        sync.Mutex
	calls       map[string]int
	validAccess map[string]bool
	lastBody    map[string]string
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	f := &managerFixture{
		t:           t,
		store:       storefakes.NewFakeStore(),
		calls:       map[string]int{},
		validAccess: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/login/", f.handleLogin)
	mux.HandleFunc("POST /users/register/", f.handleRegister)
	mux.HandleFunc("POST /users/token/refresh/", f.handleRefresh)
	mux.HandleFunc("GET /users/me/", f.handleMe)
	mux.HandleFunc("POST /users/google/", f.handleGoogle)
	mux.HandleFunc("POST /users/google-code/", f.handleGoogleCode)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	client, err := transport.New(f.server.URL, f.store)
	require.NoError(t, err)
	f.client = client

	manager, err := session.NewManager(client, f.store)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func (f *managerFixture) count(path string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[path]
}

func (f *managerFixture) record(r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[r.URL.Path]++
}

func (f *managerFixture) issue(access string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.validAccess[access] = true
}

func (f *managerFixture) bearerValid(r *http.Request) bool {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.validAccess[raw]
}

func (f *managerFixture) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Username != testUsername || body.Password != testPassword {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
		return
	}
	f.issue(issuedAccess)
	_ = json.NewEncoder(w).Encode(map[string]string{"access": issuedAccess, "refresh": issuedRefresh})
}

func (f *managerFixture) handleRegister(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var body struct {
		Username string `json:"username"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Username == takenUsername {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"username":["A user with that username already exists."]}`))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"username":"` + body.Username + `"}`))
}

func (f *managerFixture) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Refresh != issuedRefresh {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
		return
	}
	f.issue(refreshedAccess)
	_ = json.NewEncoder(w).Encode(map[string]string{"access": refreshedAccess})
}

func (f *managerFixture) handleMe(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if !f.bearerValid(r) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
		return
	}
	_, _ = w.Write([]byte(`{"id":1,"username":"alice","email":"alice@example.com","profile":{"instruments":"guitar","location":"Berlin"}}`))
}

func (f *managerFixture) handleGoogle(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var body struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.AccessToken != googleToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid Google token."}`))
		return
	}
	f.issue(issuedAccess)
	_ = json.NewEncoder(w).Encode(map[string]string{"access": issuedAccess, "refresh": issuedRefresh})
}

func (f *managerFixture) handleGoogleCode(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var body struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirectUri"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Code == "" || body.RedirectURI == "" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"code and redirectUri are required."}`))
		return
	}
	f.issue(issuedAccess)
	_ = json.NewEncoder(w).Encode(map[string]string{"access": issuedAccess, "refresh": issuedRefresh})
}

func TestRestore_NoStoredCredentials(t *testing.T) {
	f := newManagerFixture(t)

	require.Equal(t, session.StatusUninitialized, f.manager.Session().Status)
	require.NoError(t, f.manager.Restore(context.Background()))
	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status)
	require.Equal(t, 0, f.count("/users/me/"), "no network call without a stored credential")
}

func TestRestore_ValidStoredCredential(t *testing.T) {
	f := newManagerFixture(t)
	f.issue(issuedAccess)
	require.NoError(t, credentials.SetPair(f.store, issuedAccess, issuedRefresh))

	require.NoError(t, f.manager.Restore(context.Background()))

	current := f.manager.Session()
	require.True(t, current.Authenticated())
	require.Equal(t, "alice", current.User.Username)
	require.Equal(t, "guitar", current.User.Profile.Instruments)
}

func TestRestore_RejectedCredentialClearsStore(t *testing.T) {
	f := newManagerFixture(t)
	// Stored but never issued: the backend rejects it, and the stale
	// refresh credential is rejected too.
	require.NoError(t, credentials.SetPair(f.store, "stale-access", "stale-refresh"))

	require.NoError(t, f.manager.Restore(context.Background()))

	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status)
	require.Equal(t, 0, f.store.Len())
}

func TestRestore_SecondCallRejected(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	err := f.manager.Restore(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAlreadyRestored)
}

func TestRestore_StorageFailureTreatedAsAbsent(t *testing.T) {
	f := newManagerFixture(t)
	f.store.ReadErr = apperrors.ErrStorage

	require.NoError(t, f.manager.Restore(context.Background()))
	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status)
}

func TestLogin_Success(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	require.NoError(t, f.manager.Login(context.Background(), testUsername, testPassword))

	current := f.manager.Session()
	require.Equal(t, session.StatusAuthenticated, current.Status)
	require.Equal(t, "alice", current.User.Username)

	access, err := f.store.Get(credentials.AccessKey)
	require.NoError(t, err)
	require.Equal(t, issuedAccess, access)
	refresh, err := f.store.Get(credentials.RefreshKey)
	require.NoError(t, err)
	require.Equal(t, issuedRefresh, refresh)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	err := f.manager.Login(context.Background(), testUsername, "wrong")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrCredentialRejected))

	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status, "session unchanged")
	require.Equal(t, 0, f.store.Len(), "no partial credential write")
}

func TestRegister_SuccessLogsIn(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	require.NoError(t, f.manager.Register(context.Background(), testUsername, testEmail, testPassword, testPassword))

	require.Equal(t, 1, f.count("/users/register/"))
	require.Equal(t, 1, f.count("/users/login/"))
	require.True(t, f.manager.Session().Authenticated())
}

func TestRegister_FailureNeverAttemptsLogin(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	err := f.manager.Register(context.Background(), takenUsername, testEmail, testPassword, testPassword)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrValidation))

	require.Equal(t, 0, f.count("/users/login/"))
	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status)
}

func TestFederatedLogin_RawTokenPayload(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	require.NoError(t, f.manager.FederatedLogin(context.Background(), session.ProviderGoogle, googleToken))

	require.Equal(t, 1, f.count("/users/google/"))
	require.True(t, f.manager.Session().Authenticated())
}

func TestFederatedLogin_AuthCodePayload(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	payload := session.AuthCodePayload{Code: "auth-code", CodeVerifier: "verifier", RedirectURI: "app://callback"}
	require.NoError(t, f.manager.FederatedLogin(context.Background(), session.ProviderGoogleCode, payload))

	require.Equal(t, 1, f.count("/users/google-code/"))
	require.True(t, f.manager.Session().Authenticated())
}

func TestLogout(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))
	require.NoError(t, f.manager.Login(context.Background(), testUsername, testPassword))
	requests := f.count("/users/login/") + f.count("/users/me/")

	f.manager.Logout()

	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status)
	require.Nil(t, f.manager.Session().User)
	require.Equal(t, 0, f.store.Len())
	require.Equal(t, requests, f.count("/users/login/")+f.count("/users/me/"), "logout makes no network calls")
}

func TestRefreshProfile(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	err := f.manager.RefreshProfile(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	require.NoError(t, f.manager.Login(context.Background(), testUsername, testPassword))
	before := f.count("/users/me/")
	require.NoError(t, f.manager.RefreshProfile(context.Background()))
	require.Equal(t, before+1, f.count("/users/me/"))
	require.Equal(t, session.StatusAuthenticated, f.manager.Session().Status)
}

func TestExpiredAccessRecoveredThroughPipeline(t *testing.T) {
	f := newManagerFixture(t)
	// A stale access credential with a live refresh credential restores to
	// Authenticated after the pipeline's transparent refresh.
	require.NoError(t, credentials.SetPair(f.store, "stale-access", issuedRefresh))

	require.NoError(t, f.manager.Restore(context.Background()))

	require.True(t, f.manager.Session().Authenticated())
	require.Equal(t, 1, f.count("/users/token/refresh/"))
	access, err := f.store.Get(credentials.AccessKey)
	require.NoError(t, err)
	require.Equal(t, refreshedAccess, access)
}

func TestRefreshFailureForcesAnonymous(t *testing.T) {
	f := newManagerFixture(t)
	f.issue(issuedAccess)
	require.NoError(t, credentials.SetPair(f.store, issuedAccess, issuedRefresh))
	require.NoError(t, f.manager.Restore(context.Background()))
	require.True(t, f.manager.Session().Authenticated())

	// The backend forgets the access token and the refresh credential rots:
	// the next authenticated call must force the session to Anonymous.
	f.lock.Lock()
	f.validAccess = map[string]bool{}
	f.lock.Unlock()
	require.NoError(t, f.store.Set(credentials.RefreshKey, "rotted"))

	err := f.manager.RefreshProfile(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrCredentialRejected))
	require.Equal(t, session.StatusAnonymous, f.manager.Session().Status)
	require.Equal(t, 0, f.store.Len())
}

func TestOnChange(t *testing.T) {
	f := newManagerFixture(t)

	var transitions []session.Status
	f.manager.OnChange(func(s session.Session) {
		transitions = append(transitions, s.Status)
	})

	require.NoError(t, f.manager.Restore(context.Background()))
	require.NoError(t, f.manager.Login(context.Background(), testUsername, testPassword))
	f.manager.Logout()

	require.Equal(t, []session.Status{
		session.StatusRestoring,
		session.StatusAnonymous,
		session.StatusAuthenticated,
		session.StatusAnonymous,
	}, transitions)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "uninitialized", session.StatusUninitialized.String())
	require.Equal(t, "restoring", session.StatusRestoring.String())
	require.Equal(t, "authenticated", session.StatusAuthenticated.String())
	require.Equal(t, "anonymous", session.StatusAnonymous.String())
}
