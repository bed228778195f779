package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// clientFlags are the editable client fields. Only flags set on the command
// line are applied.
type clientFlags struct {
	secret               string
	redirectURIs         []string
	grantTypes           []string
	scopes               []string
	accessTokenTTL       int
	authorizationCodeTTL int
	pkce                 bool
	authorizeScope       bool
}

func (f *clientFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.secret, "secret", "", "client secret")
	flags.StringSliceVar(&f.redirectURIs, "redirect-uri", nil, "redirect uri (repeatable)")
	flags.StringSliceVar(&f.grantTypes, "grant-type", nil,
		"allowed grant type (repeatable): "+strings.Join(domain.AllGrantTypes, ", "))
	flags.StringSliceVar(&f.scopes, "authorized-scope", nil, "authorized scope id (repeatable)")
	flags.IntVar(&f.accessTokenTTL, "access-token-ttl", 0, "access token lifetime in seconds")
	flags.IntVar(&f.authorizationCodeTTL, "authorization-code-ttl", 0, "authorization code lifetime in seconds")
	flags.BoolVar(&f.pkce, "pkce", false, "require PKCE")
	flags.BoolVar(&f.authorizeScope, "authorize-scope", false, "restrict the client to its authorized scopes")
}

func (f *clientFlags) apply(flags *pflag.FlagSet, c *domain.Client) error {
	var attrs domain.ClientAttributes
	if flags.Changed("secret") {
		attrs.Secret = &f.secret
	}
	if flags.Changed("redirect-uri") {
		attrs.RedirectURIs = &f.redirectURIs
	}
	if flags.Changed("access-token-ttl") {
		attrs.AccessTokenTTL = &f.accessTokenTTL
	}
	if flags.Changed("authorization-code-ttl") {
		attrs.AuthorizationCodeTTL = &f.authorizationCodeTTL
	}
	if flags.Changed("pkce") {
		attrs.PKCE = &f.pkce
	}
	if flags.Changed("authorize-scope") {
		attrs.AuthorizeScope = &f.authorizeScope
	}
	c.Assign(attrs)

	if flags.Changed("grant-type") {
		for _, label := range f.grantTypes {
			if !slices.Contains(domain.AllGrantTypes, label) {
				return fmt.Errorf("unknown grant type %q", label)
			}
		}
		for _, label := range domain.AllGrantTypes {
			c.SetGrantType(label, slices.Contains(f.grantTypes, label))
		}
	}
	if flags.Changed("authorized-scope") {
		c.AuthorizedScopes = c.AuthorizedScopes[:0]
		for _, id := range f.scopes {
			c.AddScope(&domain.Scope{ID: domain.ID(strings.TrimSpace(id))})
		}
	}
	return nil
}

func newClientsCmd(a func() *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "Manage OAuth clients",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return checkFormat(format)
		},
	}
	cmd.PersistentFlags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			clients, err := api.ListClients(cmd.Context())
			if err != nil {
				return err
			}
			return renderClients(cmd.OutOrStdout(), format, clients)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			c, err := api.GetClient(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			return renderClient(cmd.OutOrStdout(), format, c)
		},
	})

	var createFlags clientFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := domain.NewClient(domain.ClientAttributes{})
			if err := createFlags.apply(cmd.Flags(), c); err != nil {
				return err
			}
			if err := saveClient(cmd, a(), c); err != nil {
				return err
			}
			return renderClient(cmd.OutOrStdout(), format, c)
		},
	}
	createFlags.register(create.Flags())
	cmd.AddCommand(create)

	var updateFlags clientFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			c, err := api.GetClient(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			if err := updateFlags.apply(cmd.Flags(), c); err != nil {
				return err
			}
			if err := saveClient(cmd, a(), c); err != nil {
				return err
			}
			return renderClient(cmd.OutOrStdout(), format, c)
		},
	}
	updateFlags.register(update.Flags())
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			if err := api.DeleteClient(cmd.Context(), &domain.Client{ID: domain.ID(args[0])}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client %s deleted.\n", args[0]) //nolint:errcheck
			return nil
		},
	})

	var validateFlags clientFlags
	validate := &cobra.Command{
		Use:   "validate [id]",
		Short: "Check a client's authorized scopes without saving",
		Long: `Check the authorized scopes of a client without sending anything.

With an id the client is loaded from the server first; flags are applied on
top of it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := domain.NewClient(domain.ClientAttributes{})
			if len(args) == 1 {
				api, err := a().apiClient()
				if err != nil {
					return err
				}
				if c, err = api.GetClient(cmd.Context(), domain.ID(args[0])); err != nil {
					return err
				}
			}
			if err := validateFlags.apply(cmd.Flags(), c); err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				var verrs domain.ValidationErrors
				if errors.As(err, &verrs) {
					printFieldErrors(cmd.ErrOrStderr(), verrs)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Client is valid.") //nolint:errcheck
			return nil
		},
	}
	validateFlags.register(validate.Flags())
	cmd.AddCommand(validate)
	return cmd
}

func saveClient(cmd *cobra.Command, a *app, c *domain.Client) error {
	api, err := a.apiClient()
	if err != nil {
		return err
	}
	if err := api.SaveClient(cmd.Context(), c); err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			printFieldErrors(cmd.ErrOrStderr(), verrs)
		}
		return err
	}
	return nil
}
