package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/naveenspark/boruta-admin/internal/config"
	"github.com/naveenspark/boruta-admin/internal/session"
	"github.com/naveenspark/boruta-admin/pkg/client"
	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Exit codes.
const (
	exitError        = 1
	exitAuthRequired = 2
	exitInvalid      = 3
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var authErr *session.AuthenticationError
	if errors.Is(err, session.ErrNotAuthenticated) || errors.As(err, &authErr) ||
		client.IsStatus(err, http.StatusUnauthorized) {
		return exitAuthRequired
	}
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return exitInvalid
	}
	return exitError
}

func newRootCmd() *cobra.Command {
	var a *app
	root := &cobra.Command{
		Use:   "boruta-admin",
		Short: "Administer the scopes and clients of a Boruta OAuth server",
		Long: `boruta-admin signs an operator in to a Boruta authorization server with the
OAuth2 implicit grant and manages its scopes and clients, interactively
(the default) or through subcommands.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a, err = newApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), a)
		},
	}
	root.SetVersionTemplate(`{{printf "boruta-admin %s\n" .Version}}`)
	config.RegisterFlags(root.PersistentFlags())

	appRef := func() *app { return a }
	root.AddCommand(
		newLoginCmd(appRef),
		newLogoutCmd(appRef),
		newStatusCmd(appRef),
		newTUICmd(appRef),
		newScopesCmd(appRef),
		newClientsCmd(appRef),
	)
	return root
}
