// Package oauth implements the operator side of the OAuth2 implicit grant
// against a Boruta authorization server: building the authorize URL, receiving
// the redirect on a loopback callback page and refreshing the token silently
// before it expires.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AuthorizePath is the authorize endpoint below the OAuth base URL.
const AuthorizePath = "/oauth/authorize"

// DefaultScopes are requested when the configuration names none.
var DefaultScopes = []string{"scopes:manage:all", "clients:manage:all"}

// ErrNotStarted is returned when the callback server has not been started.
var ErrNotStarted = errors.New("oauth: callback server not started")

// Config configures an Implicit client.
type Config struct {
	// BaseURL is the authorization server, e.g. https://oauth.example.com.
	BaseURL string

	// ClientID is the admin console's OAuth client.
	ClientID string

	Scopes []string

	// CallbackPort is the loopback port of the callback page, 0 for any free port.
	CallbackPort int

	// SilentRefresh schedules a prompt=none authorization ahead of expiry.
	SilentRefresh bool

	// RefreshMargin is how long before expiry the silent refresh fires.
	RefreshMargin time.Duration

	// Open displays a URL to the operator. Used by silent refresh.
	Open func(url string) error

	Logger *zap.Logger
}

// Implicit is an implicit-grant OAuth client.
type Implicit struct {
	cfg      oauth2.Config
	opts     Config
	logger   *zap.Logger
	callback *CallbackServer

	mu        sync.Mutex
	state     string
	onRefresh func(Response)
	timer     *time.Timer
}

// NewImplicit validates cfg and returns a client. Call Start before LoginURL.
func NewImplicit(cfg Config) (*Implicit, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("oauth.NewImplicit: base url is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oauth.NewImplicit: client id is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Implicit{
		cfg: oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL: strings.TrimRight(cfg.BaseURL, "/") + AuthorizePath,
			},
			Scopes: cfg.Scopes,
		},
		opts:     cfg,
		logger:   logger,
		callback: NewCallbackServer(cfg.CallbackPort, logger),
	}, nil
}

// Start launches the callback page. It stays up until ctx is done so that
// silent refreshes can land on it.
func (c *Implicit) Start(ctx context.Context) error {
	redirect, err := c.callback.Start(ctx)
	if err != nil {
		return fmt.Errorf("oauth.Start: %w", err)
	}
	c.mu.Lock()
	c.cfg.RedirectURL = redirect
	c.mu.Unlock()
	go func() {
		<-ctx.Done()
		c.stopTimer()
	}()
	return nil
}

// LoginURL returns the authorize URL for an interactive login, with a fresh state.
func (c *Implicit) LoginURL() string {
	return c.authorizeURL()
}

func (c *Implicit) authorizeURL(extra ...oauth2.AuthCodeOption) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = uuid.NewString()
	opts := append([]oauth2.AuthCodeOption{oauth2.SetAuthURLParam("response_type", "token")}, extra...)
	return c.cfg.AuthCodeURL(c.state, opts...)
}

// Callback waits for the authorization response on the callback page. A
// response whose state does not match the last issued URL is turned into an
// invalid_state error response.
func (c *Implicit) Callback(ctx context.Context) (Response, error) {
	c.mu.Lock()
	started := c.cfg.RedirectURL != ""
	want := c.state
	c.mu.Unlock()
	if !started {
		return Response{}, ErrNotStarted
	}

	resp, err := c.callback.Wait(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("oauth.Callback: %w", err)
	}
	if !resp.IsError() && resp.State != want {
		c.logger.Warn("oauth state mismatch")
		return Response{Error: "invalid_state", ErrorDescription: "authorization response state does not match the request"}, nil
	}
	return resp, nil
}

// OnSilentRefresh registers the function receiving silent refresh results.
func (c *Implicit) OnSilentRefresh(fn func(Response)) {
	c.mu.Lock()
	c.onRefresh = fn
	c.mu.Unlock()
}

// ScheduleRefresh arms the silent refresh to fire RefreshMargin before a
// token living for lifetime expires. A pending refresh is replaced.
func (c *Implicit) ScheduleRefresh(lifetime time.Duration) {
	if !c.opts.SilentRefresh || c.opts.Open == nil {
		return
	}
	delay := lifetime - c.opts.RefreshMargin
	if delay < 0 {
		delay = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, c.silentRefresh)
	c.logger.Debug("silent refresh scheduled", zap.Duration("in", delay))
}

func (c *Implicit) silentRefresh() {
	url := c.authorizeURL(oauth2.SetAuthURLParam("prompt", "none"))
	if err := c.opts.Open(url); err != nil {
		c.logger.Warn("silent refresh could not open authorize url", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	resp, err := c.Callback(ctx)
	if err != nil {
		c.logger.Warn("silent refresh got no response", zap.Error(err))
		return
	}

	c.mu.Lock()
	fn := c.onRefresh
	c.mu.Unlock()
	if fn != nil {
		fn(resp)
	}
}

func (c *Implicit) stopTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
