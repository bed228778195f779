package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/naveenspark/boruta-admin/internal/session"
)

const (
	loginTimeout     = 2 * time.Minute
	maxLoginAttempts = 3
)

func newLoginCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in through the browser",
		Long: `Sign in to the authorization server with the OAuth2 implicit grant.

A browser opens on the authorization page. Once access is granted the token
is stored locally and verified against the admin API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd.Context(), a())
		},
	}
}

func runLogin(ctx context.Context, a *app) error {
	if err := a.cfg.ValidateLogin(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	var verifyErr error
	a.onAuthenticated = func(ctx context.Context) error {
		verifyErr = a.verifyToken(ctx)
		return nil
	}

	if err := a.oauth.Start(ctx); err != nil {
		return err
	}
	if err := a.session.Login(ctx); err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.errOut))
	s.Suffix = " Waiting for authorization..."
	s.Start()
	err := awaitCallback(ctx, a.session)
	s.Stop()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("login timed out after %s", loginTimeout)
		}
		return err
	}

	fmt.Fprintf(a.out, "%s Logged in, token expires in %s\n", //nolint:errcheck
		text.FgGreen.Sprint("✓"), a.session.ExpiresIn().Round(time.Second))
	if verifyErr != nil {
		fmt.Fprintf(a.errOut, "%s Token saved but verification failed: %v\n", //nolint:errcheck
			text.FgYellow.Sprint("!"), verifyErr)
	}
	return nil
}

// awaitCallback waits for authorization responses. A refused authorization
// restarts the login, so the operator gets a few tries before giving up.
func awaitCallback(ctx context.Context, m *session.Manager) error {
	var err error
	for i := 0; i < maxLoginAttempts; i++ {
		err = m.Callback(ctx)
		var authErr *session.AuthenticationError
		if !errors.As(err, &authErr) {
			return err
		}
	}
	return err
}

func newLogoutCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			app := a()
			if err := app.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(app.out, "Logged out.") //nolint:errcheck
			return nil
		},
	}
}

func newStatusCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			printStatus(a())
			return nil
		},
	}
}

func printStatus(a *app) {
	w := a.out
	line := func(label, value string) {
		fmt.Fprintf(w, "%-10s %s\n", label+":", value) //nolint:errcheck
	}
	line("API", a.cfg.BaseURL)
	line("Auth", a.cfg.OAuthBaseURL)
	if a.cfg.ClientID == "" {
		line("Client ID", text.FgHiBlack.Sprint("not configured"))
	} else {
		line("Client ID", a.cfg.ClientID)
	}

	switch {
	case a.session.IsAuthenticated():
		line("Status", text.FgGreen.Sprint("Authenticated"))
		line("Expires", "in "+formatDuration(a.session.ExpiresIn()))
	case a.session.AccessToken() != "":
		line("Status", text.FgYellow.Sprint("Expired"))
		line("Expired", formatDuration(-a.session.ExpiresIn())+" ago")
	default:
		line("Status", text.FgYellow.Sprint("Not authenticated"))
	}
	line("Location", a.session.StoredLocation())
	if !a.session.IsAuthenticated() {
		printSignInHint(w)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
