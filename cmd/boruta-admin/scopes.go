package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

func newScopesCmd(a func() *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "scopes",
		Aliases: []string{"scope"},
		Short:   "Manage OAuth scopes",
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
		Short: "List scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			scopes, err := api.ListScopes(cmd.Context())
			if err != nil {
				return err
			}
			return renderScopes(cmd.OutOrStdout(), format, scopes)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			s, err := api.GetScope(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			return renderScope(cmd.OutOrStdout(), format, s)
		},
	})

	var name string
	var public bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := domain.NewScope(domain.ScopeAttributes{Name: &name, Public: &public})
			if err := saveScope(cmd, a(), s); err != nil {
				return err
			}
			return renderScope(cmd.OutOrStdout(), format, s)
		},
	}
	create.Flags().StringVar(&name, "name", "", "scope name")
	create.Flags().BoolVar(&public, "public", false, "make the scope public")
	cmd.AddCommand(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			s, err := api.GetScope(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			var attrs domain.ScopeAttributes
			if cmd.Flags().Changed("name") {
				attrs.Name = &name
			}
			if cmd.Flags().Changed("public") {
				attrs.Public = &public
			}
			s.Assign(attrs)
			if err := saveScope(cmd, a(), s); err != nil {
				return err
			}
			return renderScope(cmd.OutOrStdout(), format, s)
		},
	}
	update.Flags().StringVar(&name, "name", "", "new scope name")
	update.Flags().BoolVar(&public, "public", false, "make the scope public")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			if err := api.DeleteScope(cmd.Context(), &domain.Scope{ID: domain.ID(args[0])}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scope %s deleted.\n", args[0]) //nolint:errcheck
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <id>",
		Short: "Show the server copy of a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a().apiClient()
			if err != nil {
				return err
			}
			s := &domain.Scope{ID: domain.ID(args[0])}
			if err := api.ResetScope(cmd.Context(), s); err != nil {
				return err
			}
			return renderScope(cmd.OutOrStdout(), format, s)
		},
	})
	return cmd
}

func saveScope(cmd *cobra.Command, a *app, s *domain.Scope) error {
	api, err := a.apiClient()
	if err != nil {
		return err
	}
	if err := api.SaveScope(cmd.Context(), s); err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			printFieldErrors(cmd.ErrOrStderr(), verrs)
		}
		return err
	}
	return nil
}
