package session

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/boruta-admin/internal/oauth"
	"github.com/naveenspark/boruta-admin/internal/storage"
)

type fakeAuthorizer struct {
	loginURL  string
	response  oauth.Response
	err       error
	onRefresh func(oauth.Response)
	scheduled []time.Duration
}

func (f *fakeAuthorizer) LoginURL() string { return f.loginURL }

func (f *fakeAuthorizer) Callback(context.Context) (oauth.Response, error) {
	return f.response, f.err
}

func (f *fakeAuthorizer) OnSilentRefresh(fn func(oauth.Response)) { f.onRefresh = fn }

func (f *fakeAuthorizer) ScheduleRefresh(d time.Duration) { f.scheduled = append(f.scheduled, d) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type harness struct {
	m         *Manager
	store     *storage.Memory
	auth      *fakeAuthorizer
	clock     *clock
	navigated []string
	notified  []string
	userLoads int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: storage.NewMemory(),
		auth:  &fakeAuthorizer{loginURL: "https://oauth.example.com/oauth/authorize?client_id=admin"},
		clock: &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	m, err := New(Options{
		Store:      h.store,
		Authorizer: h.auth,
		Navigate: func(u string) error {
			h.navigated = append(h.navigated, u)
			return nil
		},
		Notify: func(msg string) { h.notified = append(h.notified, msg) },
		OnAuthenticated: func(context.Context) error {
			h.userLoads++
			return nil
		},
		Now: h.clock.now,
	})
	require.NoError(t, err)
	h.m = m
	return h
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{Authorizer: &fakeAuthorizer{}})
	assert.Error(t, err)
	_, err = New(Options{Store: storage.NewMemory()})
	assert.Error(t, err)
}

func TestNewRegistersSilentRefresh(t *testing.T) {
	h := newHarness(t)
	require.NotNil(t, h.auth.onRefresh)

	h.auth.onRefresh(oauth.Response{AccessToken: "refreshed", ExpiresIn: 600})
	assert.Equal(t, "refreshed", h.m.AccessToken())
	assert.True(t, h.m.IsAuthenticated())
}

func TestIsAuthenticatedWithoutToken(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.m.IsAuthenticated())
	assert.Equal(t, "", h.m.AccessToken())
	assert.Nil(t, h.m.Token())
}

func TestIsAuthenticatedExpiry(t *testing.T) {
	h := newHarness(t)
	now := h.clock.t.UnixMilli()

	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"past", now - 1, false},
		{"exactly now", now, false},
		{"future", now + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, h.store.Set(KeyAccessToken, "tok"))
			require.NoError(t, h.store.Set(KeyTokenExpiresAt, strconv.FormatInt(tt.expiresAt, 10)))
			assert.Equal(t, tt.want, h.m.IsAuthenticated())
		})
	}
}

func TestIsAuthenticatedGarbageExpiry(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(KeyAccessToken, "tok"))
	require.NoError(t, h.store.Set(KeyTokenExpiresAt, "tomorrow"))
	assert.False(t, h.m.IsAuthenticated())
	assert.Equal(t, time.Duration(0), h.m.ExpiresIn())
}

func TestAuthenticateStoresTokenAndExpiry(t *testing.T) {
	h := newHarness(t)
	start := h.clock.t

	err := h.m.Authenticate(context.Background(), oauth.Response{AccessToken: "t", ExpiresIn: 60})
	require.NoError(t, err)

	raw, ok := h.store.Get(KeyTokenExpiresAt)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(start.UnixMilli()+60000, 10), raw)
	assert.Equal(t, "t", h.m.AccessToken())
	assert.True(t, h.m.IsAuthenticated())
	assert.Equal(t, 60*time.Second, h.m.ExpiresIn())
	assert.Equal(t, 1, h.userLoads)
	assert.Equal(t, []time.Duration{time.Minute}, h.auth.scheduled)

	h.clock.t = start.Add(60 * time.Second)
	assert.False(t, h.m.IsAuthenticated())

	h.clock.t = start.Add(90 * time.Second)
	assert.Equal(t, -30*time.Second, h.m.ExpiresIn())
}

func TestAuthenticateErrorResponse(t *testing.T) {
	h := newHarness(t)

	err := h.m.Authenticate(context.Background(), oauth.Response{Error: "access_denied", ErrorDescription: "operator denied access"})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "access_denied", authErr.Code)
	assert.Equal(t, []string{"operator denied access"}, h.notified)
	assert.Equal(t, []string{h.auth.loginURL}, h.navigated)
	assert.False(t, h.m.IsAuthenticated())
	assert.Equal(t, 0, h.userLoads)
}

func TestAuthenticateHookError(t *testing.T) {
	store := storage.NewMemory()
	m, err := New(Options{
		Store:           store,
		Authorizer:      &fakeAuthorizer{},
		OnAuthenticated: func(context.Context) error { return errors.New("me: HTTP 500") },
	})
	require.NoError(t, err)

	err = m.Authenticate(context.Background(), oauth.Response{AccessToken: "t", ExpiresIn: 60})
	assert.ErrorContains(t, err, "HTTP 500")
	assert.Equal(t, "t", m.AccessToken())
}

func TestLoginNavigates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Login(context.Background()))
	assert.Equal(t, []string{h.auth.loginURL}, h.navigated)
}

func TestCallback(t *testing.T) {
	h := newHarness(t)
	h.auth.response = oauth.Response{AccessToken: "cb", ExpiresIn: 3600}

	require.NoError(t, h.m.Callback(context.Background()))
	assert.Equal(t, "cb", h.m.AccessToken())
	assert.True(t, h.m.IsAuthenticated())
}

func TestCallbackTransportError(t *testing.T) {
	h := newHarness(t)
	h.auth.err = context.DeadlineExceeded

	err := h.m.Callback(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Authenticate(context.Background(), oauth.Response{AccessToken: "t", ExpiresIn: 60}))

	require.NoError(t, h.m.Logout())
	assert.Equal(t, "", h.m.AccessToken())
	assert.False(t, h.m.IsAuthenticated())
	assert.Nil(t, h.m.Token())
}

func TestStoredLocation(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "home", h.m.StoredLocation())

	require.NoError(t, h.m.StoreLocationName("clients"))
	assert.Equal(t, "clients", h.m.StoredLocation())
}

func TestToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Authenticate(context.Background(), oauth.Response{AccessToken: "t", ExpiresIn: 60}))

	tok := h.m.Token()
	require.NotNil(t, tok)
	assert.Equal(t, "t", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
	assert.True(t, tok.Expiry.Equal(h.clock.t.Add(time.Minute)))
}

func TestAuthenticationErrorMessage(t *testing.T) {
	assert.Equal(t, "authentication failed: access_denied", (&AuthenticationError{Code: "access_denied"}).Error())
	assert.Equal(t, "authentication failed: access_denied: nope", (&AuthenticationError{Code: "access_denied", Description: "nope"}).Error())
}

func TestSilentRefreshRefusedWaitsForLogin(t *testing.T) {
	h := newHarness(t)
	h.auth.response = oauth.Response{AccessToken: "after-login", ExpiresIn: 600}

	h.auth.onRefresh(oauth.Response{Error: "login_required", ErrorDescription: "sign in again"})

	assert.Equal(t, []string{"sign in again"}, h.notified)
	assert.Equal(t, []string{h.auth.loginURL}, h.navigated)
	assert.Equal(t, "after-login", h.m.AccessToken())
	assert.True(t, h.m.IsAuthenticated())
	assert.Equal(t, 1, h.userLoads)
	assert.Equal(t, []time.Duration{10 * time.Minute}, h.auth.scheduled)
}

func TestSilentRefreshGivesUpAfterRepeatedRefusals(t *testing.T) {
	h := newHarness(t)
	refused := oauth.Response{Error: "access_denied"}
	h.auth.response = refused

	h.auth.onRefresh(refused)

	assert.Len(t, h.navigated, 1+maxReloginAttempts)
	assert.False(t, h.m.IsAuthenticated())
	assert.Equal(t, 0, h.userLoads)
}

func TestSilentRefreshStopsOnCallbackError(t *testing.T) {
	h := newHarness(t)
	h.auth.err = context.DeadlineExceeded

	h.auth.onRefresh(oauth.Response{Error: "login_required"})

	assert.Len(t, h.navigated, 1)
	assert.False(t, h.m.IsAuthenticated())
}

// brokenStore fails every multi-key write.
type brokenStore struct {
	*storage.Memory
}

func (brokenStore) SetAll(map[string]string) error { return errors.New("disk full") }

func TestAuthenticateStoreFailureKeepsPreviousToken(t *testing.T) {
	store := brokenStore{storage.NewMemory()}
	require.NoError(t, store.Set(KeyAccessToken, "old"))
	require.NoError(t, store.Set(KeyTokenExpiresAt, "1"))
	m, err := New(Options{Store: store, Authorizer: &fakeAuthorizer{}})
	require.NoError(t, err)

	err = m.Authenticate(context.Background(), oauth.Response{AccessToken: "new", ExpiresIn: 60})
	require.Error(t, err)

	assert.Equal(t, "old", m.AccessToken())
	raw, _ := store.Get(KeyTokenExpiresAt)
	assert.Equal(t, "1", raw)
}
