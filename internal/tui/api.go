package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/naveenspark/boruta-admin/pkg/client"
	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// API is the part of the admin API the console uses. *client.Client
// implements it.
type API interface {
	ListScopes(ctx context.Context) ([]*domain.Scope, error)
	SaveScope(ctx context.Context, s *domain.Scope) error
	DeleteScope(ctx context.Context, s *domain.Scope) error
	ResetScope(ctx context.Context, s *domain.Scope) error

	ListClients(ctx context.Context) ([]*domain.Client, error)
	SaveClient(ctx context.Context, c *domain.Client) error
	DeleteClient(ctx context.Context, c *domain.Client) error
}

var _ API = (*client.Client)(nil)

// Locations remembers which tab the operator had open.
type Locations interface {
	StoreLocationName(name string) error
	StoredLocation() string
}

// APIChangedMsg hands the console a client bound to a fresh token, e.g.
// after a silent refresh.
type APIChangedMsg struct {
	API API
}

// statusText turns a request error into a one-line status.
func statusText(action string, err error) string {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return action + " failed: " + verrs.Error()
	case client.IsStatus(err, http.StatusUnauthorized):
		return "session expired -- run: boruta-admin login"
	case client.IsStatus(err, http.StatusForbidden):
		return action + " failed: forbidden"
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

// cloneScope copies s so that a request can update the copy while the view
// keeps rendering the original.
func cloneScope(s *domain.Scope) *domain.Scope {
	cp := *s
	return &cp
}

func cloneClient(c *domain.Client) *domain.Client {
	cp := *c
	cp.RedirectURIs = slices.Clone(c.RedirectURIs)
	cp.AuthorizedScopes = slices.Clone(c.AuthorizedScopes)
	cp.SupportedGrantTypes = slices.Clone(c.SupportedGrantTypes)
	cp.GrantTypes = slices.Clone(c.GrantTypes)
	return &cp
}
