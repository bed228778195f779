package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// encode writes v as JSON or YAML. It reports false for the table format.
func encode(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

func printEmpty(w io.Writer, what string) {
	fmt.Fprintln(w, text.FgYellow.Sprintf("No %s found", what)) //nolint:errcheck
}

func renderScopes(w io.Writer, format string, scopes []*domain.Scope) error {
	payload := make([]domain.ScopePayload, 0, len(scopes))
	for _, s := range scopes {
		payload = append(payload, s.Serialized())
	}
	if done, err := encode(w, format, payload); done {
		return err
	}
	if len(scopes) == 0 {
		printEmpty(w, "scopes")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(header("ID", "NAME", "PUBLIC"))
	for _, s := range scopes {
		t.AppendRow(table.Row{s.ID, s.Name, yesNo(s.Public)})
	}
	t.Render()
	return nil
}

func renderScope(w io.Writer, format string, s *domain.Scope) error {
	if done, err := encode(w, format, s.Serialized()); done {
		return err
	}
	t := newTable(w)
	t.AppendHeader(header("KEY", "VALUE"))
	t.AppendRows([]table.Row{
		{"id", s.ID},
		{"name", s.Name},
		{"public", yesNo(s.Public)},
	})
	t.Render()
	return nil
}

func renderClients(w io.Writer, format string, clients []*domain.Client) error {
	payload := make([]domain.ClientPayload, 0, len(clients))
	for _, c := range clients {
		payload = append(payload, c.Serialized())
	}
	if done, err := encode(w, format, payload); done {
		return err
	}
	if len(clients) == 0 {
		printEmpty(w, "clients")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(header("ID", "REDIRECT URIS", "GRANT TYPES", "SCOPES", "PKCE"))
	for _, c := range clients {
		t.AppendRow(table.Row{
			c.ID,
			strings.Join(c.RedirectURIs, "\n"),
			strings.Join(c.EnabledGrantTypes(), "\n"),
			strings.Join(scopeNames(c), "\n"),
			yesNo(c.PKCE),
		})
	}
	t.Render()
	return nil
}

func renderClient(w io.Writer, format string, c *domain.Client) error {
	if done, err := encode(w, format, c.Serialized()); done {
		return err
	}
	t := newTable(w)
	t.AppendHeader(header("KEY", "VALUE"))
	t.AppendRows([]table.Row{
		{"id", c.ID},
		{"secret", c.Secret},
		{"redirect_uris", strings.Join(c.RedirectURIs, "\n")},
		{"grant_types", grantChecklist(c)},
		{"authorize_scope", yesNo(c.AuthorizeScope)},
		{"authorized_scopes", strings.Join(scopeNames(c), "\n")},
		{"access_token_ttl", strconv.Itoa(c.AccessTokenTTL)},
		{"authorization_code_ttl", strconv.Itoa(c.AuthorizationCodeTTL)},
		{"pkce", yesNo(c.PKCE)},
	})
	t.Render()
	return nil
}

func grantChecklist(c *domain.Client) string {
	lines := make([]string, 0, len(c.GrantTypes))
	for _, g := range c.GrantTypes {
		box := "[ ]"
		if g.Enabled {
			box = "[x]"
		}
		lines = append(lines, box+" "+g.Label)
	}
	return strings.Join(lines, "\n")
}

func scopeNames(c *domain.Client) []string {
	names := make([]string, 0, len(c.AuthorizedScopes))
	for _, a := range c.AuthorizedScopes {
		if a.Scope == nil {
			continue
		}
		name := a.Scope.Name
		if name == "" {
			name = a.Scope.ID.String()
		}
		names = append(names, name)
	}
	return names
}

// printFieldErrors lists validation errors field by field.
func printFieldErrors(w io.Writer, errs domain.ValidationErrors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, msg := range errs[f] {
			fmt.Fprintf(w, "  %s %s %s\n", text.FgRed.Sprint("✗"), f, msg) //nolint:errcheck
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
