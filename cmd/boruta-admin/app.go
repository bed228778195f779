package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"github.com/naveenspark/boruta-admin/internal/browser"
	"github.com/naveenspark/boruta-admin/internal/config"
	"github.com/naveenspark/boruta-admin/internal/logging"
	"github.com/naveenspark/boruta-admin/internal/oauth"
	"github.com/naveenspark/boruta-admin/internal/session"
	"github.com/naveenspark/boruta-admin/internal/storage"
	"github.com/naveenspark/boruta-admin/pkg/client"
)

// app is the session context shared by every command. It is built once per
// invocation, after configuration is resolved.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   storage.Store
	oauth   *oauth.Implicit
	session *session.Manager
	out     io.Writer
	errOut  io.Writer

	// quiet is set while the console owns the terminal; messages go to the
	// log only.
	quiet bool

	// onAuthenticated, when set, replaces the default post-login check.
	onAuthenticated func(ctx context.Context) error
}

func newApp(cfg config.Config, out, errOut io.Writer) (*app, error) {
	logger, err := logging.New(logging.Config{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenFile(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: store, out: out, errOut: errOut}

	if cfg.ClientID != "" {
		a.oauth, err = oauth.NewImplicit(oauth.Config{
			BaseURL:       cfg.OAuthBaseURL,
			ClientID:      cfg.ClientID,
			Scopes:        cfg.Scopes,
			CallbackPort:  cfg.CallbackPort,
			SilentRefresh: cfg.SilentRefresh,
			Open:          browser.Open,
			Logger:        logger.Named("oauth"),
		})
		if err != nil {
			return nil, err
		}
	}

	var authorizer session.Authorizer = unconfiguredAuthorizer{}
	if a.oauth != nil {
		authorizer = a.oauth
	}
	a.session, err = session.New(session.Options{
		Store:      store,
		Authorizer: authorizer,
		Navigate:   a.navigate,
		Notify: func(msg string) {
			logger.Warn("authentication message", zap.String("message", msg))
			if !a.quiet {
				fmt.Fprintln(a.errOut, text.FgRed.Sprint(msg)) //nolint:errcheck
			}
		},
		OnAuthenticated: func(ctx context.Context) error {
			if a.onAuthenticated != nil {
				return a.onAuthenticated(ctx)
			}
			return a.verifyToken(ctx)
		},
		Logger: logger.Named("session"),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	a.logger.Sync() //nolint:errcheck // best-effort flush
}

func (a *app) navigate(url string) error {
	if a.quiet {
		return browser.Open(url)
	}
	fmt.Fprintf(a.out, "Opening browser to authenticate...\n") //nolint:errcheck
	if err := browser.Open(url); err != nil {
		fmt.Fprintf(a.out, "Could not open browser. Visit this URL manually:\n  %s\n", url) //nolint:errcheck
	}
	return nil
}

// apiClient returns a resource client bound to the current token.
func (a *app) apiClient() (*client.Client, error) {
	if !a.session.IsAuthenticated() {
		return nil, fmt.Errorf("%w: run boruta-admin login", session.ErrNotAuthenticated)
	}
	return a.newClient(a.session.AccessToken()), nil
}

func (a *app) newClient(token string) *client.Client {
	return client.New(a.cfg.BaseURL, token,
		client.WithScopesPath(a.cfg.ScopesPath),
		client.WithClientsPath(a.cfg.ClientsPath),
		client.WithLogger(a.logger.Named("api")),
	)
}

// verifyToken makes one authenticated call so a token the API rejects is
// noticed right after login.
func (a *app) verifyToken(ctx context.Context) error {
	if _, err := a.newClient(a.session.AccessToken()).ListScopes(ctx); err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	return nil
}

// unconfiguredAuthorizer stands in when no client id is configured. Commands
// that only use a stored token still work.
type unconfiguredAuthorizer struct{}

func (unconfiguredAuthorizer) LoginURL() string { return "" }

func (unconfiguredAuthorizer) Callback(context.Context) (oauth.Response, error) {
	return oauth.Response{}, fmt.Errorf("oauth: %s is not configured", config.KeyClientID)
}

func (unconfiguredAuthorizer) OnSilentRefresh(func(oauth.Response)) {}
