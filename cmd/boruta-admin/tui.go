package main

import (
	"context"
	"fmt"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naveenspark/boruta-admin/internal/tui"
	"github.com/naveenspark/boruta-admin/pkg/client"
)

func newTUICmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive admin console (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), a())
		},
	}
}

func runTUI(ctx context.Context, a *app) error {
	if !a.session.IsAuthenticated() {
		printOverview(a.out)
		printSignInHint(a.out)
		return nil
	}
	api := a.newClient(a.session.AccessToken())
	// Only send the operator back to login on a 401; other errors are shown
	// inside the console.
	if _, err := api.ListScopes(ctx); client.IsStatus(err, http.StatusUnauthorized) {
		printOverview(a.out)
		printSignInHint(a.out)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.quiet = true
	p := tea.NewProgram(tui.NewApp(api, a.session, version), tea.WithAltScreen(), tea.WithContext(ctx))
	if a.oauth != nil && a.cfg.SilentRefresh {
		a.onAuthenticated = func(context.Context) error {
			p.Send(tui.APIChangedMsg{API: a.newClient(a.session.AccessToken())})
			return nil
		}
		if err := a.oauth.Start(ctx); err != nil {
			a.logger.Warn("silent refresh disabled", zap.Error(err))
		} else {
			a.oauth.ScheduleRefresh(a.session.ExpiresIn())
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
