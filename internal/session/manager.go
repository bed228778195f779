// Package session owns the operator's authentication state: the bearer
// token, its expiry and the last place the operator meant to go. State lives
// in a storage.Store so it survives restarts.
//
// A Manager is created once at startup and handed to whatever needs it. It
// has two states, unauthenticated and authenticated; expiry is noticed lazily
// when IsAuthenticated is asked, no timer flips the state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/naveenspark/boruta-admin/internal/oauth"
	"github.com/naveenspark/boruta-admin/internal/storage"
)

// Storage keys.
const (
	KeyAccessToken    = "access_token"
	KeyTokenExpiresAt = "token_expires_at"
	KeyStoredLocation = "stored_location"
)

// DefaultLocation is returned by StoredLocation when nothing was stored.
const DefaultLocation = "home"

// Re-login after a refused silent refresh.
const (
	defaultLoginTimeout = 2 * time.Minute
	maxReloginAttempts  = 3
)

// Authorizer is the delegated OAuth client driving the implicit grant.
type Authorizer interface {
	LoginURL() string
	Callback(ctx context.Context) (oauth.Response, error)
	OnSilentRefresh(fn func(oauth.Response))
}

// refreshScheduler is implemented by authorizers that refresh silently.
type refreshScheduler interface {
	ScheduleRefresh(lifetime time.Duration)
}

// Options configures a Manager. Store and Authorizer are required.
type Options struct {
	Store      storage.Store
	Authorizer Authorizer

	// Navigate sends the operator to a URL, e.g. by opening a browser.
	Navigate func(url string) error

	// Notify shows a message to the operator.
	Notify func(msg string)

	// OnAuthenticated runs after a token has been stored, typically to load
	// the current user.
	OnAuthenticated func(ctx context.Context) error

	// LoginTimeout bounds the wait for the operator after a silent refresh
	// was refused and login was started again. Defaults to two minutes.
	LoginTimeout time.Duration

	Now    func() time.Time
	Logger *zap.Logger
}

// Manager manages the session lifecycle.
type Manager struct {
	store      storage.Store
	authorizer Authorizer
	navigate   func(string) error
	notify     func(string)
	onAuth     func(context.Context) error
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// New builds a Manager and registers Authenticate as the silent refresh
// callback of the authorizer.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session.New: store is required")
	}
	if opts.Authorizer == nil {
		return nil, fmt.Errorf("session.New: authorizer is required")
	}
	m := &Manager{
		store:      opts.Store,
		authorizer: opts.Authorizer,
		navigate:   opts.Navigate,
		notify:     opts.Notify,
		onAuth:     opts.OnAuthenticated,
		timeout:    opts.LoginTimeout,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if m.navigate == nil {
		m.navigate = func(string) error { return nil }
	}
	if m.notify == nil {
		m.notify = func(string) {}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.timeout <= 0 {
		m.timeout = defaultLoginTimeout
	}

	m.authorizer.OnSilentRefresh(m.refreshed)
	return m, nil
}

// refreshed authenticates with a silent refresh result. A refused refresh
// sends the operator to the login page, so the answer to that page is
// waited for here.
func (m *Manager) refreshed(resp oauth.Response) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	err := m.Authenticate(ctx, resp)
	var authErr *AuthenticationError
	for i := 0; i < maxReloginAttempts && errors.As(err, &authErr); i++ {
		err = m.Callback(ctx)
	}
	if err != nil {
		m.logger.Warn("silent refresh failed", zap.Error(err))
	}
}

// Login sends the operator to the authorization endpoint.
func (m *Manager) Login(_ context.Context) error {
	if err := m.navigate(m.authorizer.LoginURL()); err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}
	return nil
}

// Callback waits for the authorization response and authenticates with it.
func (m *Manager) Callback(ctx context.Context) error {
	resp, err := m.authorizer.Callback(ctx)
	if err != nil {
		return fmt.Errorf("session.Callback: %w", err)
	}
	return m.Authenticate(ctx, resp)
}

// Authenticate stores the token of a successful response with its expiry
// (now + expires_in seconds) and runs the OnAuthenticated hook. An error
// response is shown to the operator, login is started again and an
// *AuthenticationError is returned.
func (m *Manager) Authenticate(ctx context.Context, resp oauth.Response) error {
	if resp.IsError() {
		m.logger.Info("authentication refused", zap.String("error", resp.Error))
		m.notify(describe(resp))
		if err := m.Login(ctx); err != nil {
			m.logger.Warn("re-login failed", zap.Error(err))
		}
		return &AuthenticationError{Code: resp.Error, Description: resp.ErrorDescription}
	}

	expiresAt := m.now().Add(resp.Lifetime()).UnixMilli()
	err := m.store.SetAll(map[string]string{
		KeyAccessToken:    resp.AccessToken,
		KeyTokenExpiresAt: strconv.FormatInt(expiresAt, 10),
	})
	if err != nil {
		return fmt.Errorf("session.Authenticate: %w", err)
	}
	m.logger.Info("authenticated", zap.Time("expires_at", time.UnixMilli(expiresAt)))

	if s, ok := m.authorizer.(refreshScheduler); ok {
		s.ScheduleRefresh(resp.Lifetime())
	}
	if m.onAuth != nil {
		if err := m.onAuth(ctx); err != nil {
			return fmt.Errorf("session.Authenticate: %w", err)
		}
	}
	return nil
}

func describe(resp oauth.Response) string {
	if resp.ErrorDescription != "" {
		return resp.ErrorDescription
	}
	return resp.Error
}

// Logout forgets the token locally. The token stays valid on the server
// until it expires.
func (m *Manager) Logout() error {
	errToken := m.store.Remove(KeyAccessToken)
	errExpiry := m.store.Remove(KeyTokenExpiresAt)
	if err := errors.Join(errToken, errExpiry); err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	m.logger.Info("logged out")
	return nil
}

// StoreLocationName remembers where the operator was heading.
func (m *Manager) StoreLocationName(name string) error {
	if err := m.store.Set(KeyStoredLocation, name); err != nil {
		return fmt.Errorf("session.StoreLocationName: %w", err)
	}
	return nil
}

// StoredLocation returns the remembered location, "home" when unset.
func (m *Manager) StoredLocation() string {
	if name, ok := m.store.Get(KeyStoredLocation); ok && name != "" {
		return name
	}
	return DefaultLocation
}

// AccessToken returns the stored token, empty when there is none.
func (m *Manager) AccessToken() string {
	tok, _ := m.store.Get(KeyAccessToken)
	return tok
}

// IsAuthenticated reports whether a token is stored and its expiry is
// strictly in the future.
func (m *Manager) IsAuthenticated() bool {
	if m.AccessToken() == "" {
		return false
	}
	expiresAt, ok := m.expiresAt()
	return ok && expiresAt.After(m.now())
}

// ExpiresIn returns the time left on the token. It is negative once the
// token has expired and zero when no expiry is stored.
func (m *Manager) ExpiresIn() time.Duration {
	expiresAt, ok := m.expiresAt()
	if !ok {
		return 0
	}
	return expiresAt.Sub(m.now())
}

// Token returns the stored credential as an oauth2 bearer token, nil when
// there is no token.
func (m *Manager) Token() *oauth2.Token {
	tok := m.AccessToken()
	if tok == "" {
		return nil
	}
	t := &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}
	if expiresAt, ok := m.expiresAt(); ok {
		t.Expiry = expiresAt
	}
	return t
}

func (m *Manager) expiresAt() (time.Time, bool) {
	raw, ok := m.store.Get(KeyTokenExpiresAt)
	if !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
