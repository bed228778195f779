package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// ListScopes fetches every scope.
func (c *Client) ListScopes(ctx context.Context) ([]*domain.Scope, error) {
	var attrs []domain.ScopeAttributes
	if err := c.get(ctx, c.scopesPath, &attrs); err != nil {
		return nil, fmt.Errorf("client.ListScopes: %w", err)
	}
	scopes := make([]*domain.Scope, 0, len(attrs))
	for _, a := range attrs {
		scopes = append(scopes, domain.NewScope(a))
	}
	return scopes, nil
}

// GetScope fetches a single scope by ID.
func (c *Client) GetScope(ctx context.Context, id domain.ID) (*domain.Scope, error) {
	var attrs domain.ScopeAttributes
	if err := c.get(ctx, c.scopePath(id), &attrs); err != nil {
		return nil, fmt.Errorf("client.GetScope: %w", err)
	}
	return domain.NewScope(attrs), nil
}

// SaveScope creates s when it has no id and updates it otherwise, then merges
// the server's answer back into s. Field errors are stored on s.Errors and
// returned as domain.ValidationErrors.
func (c *Client) SaveScope(ctx context.Context, s *domain.Scope) error {
	s.Errors = nil
	body := map[string]any{"scope": s.Serialized()}

	var (
		attrs domain.ScopeAttributes
		err   error
	)
	if s.Persisted() {
		err = c.doRequest(ctx, http.MethodPatch, c.scopePath(s.ID), body, &attrs)
	} else {
		err = c.doRequest(ctx, http.MethodPost, c.scopesPath, body, &attrs)
	}
	if err != nil {
		return saveFailed(&s.Errors, "client.SaveScope", err)
	}
	s.Assign(attrs)
	return nil
}

// DeleteScope deletes s on the server. s itself is left untouched.
func (c *Client) DeleteScope(ctx context.Context, s *domain.Scope) error {
	if err := c.doRequest(ctx, http.MethodDelete, c.scopePath(s.ID), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteScope: %w", err)
	}
	return nil
}

// ResetScope reloads s from the server, dropping unsaved local edits.
func (c *Client) ResetScope(ctx context.Context, s *domain.Scope) error {
	var attrs domain.ScopeAttributes
	if err := c.get(ctx, c.scopePath(s.ID), &attrs); err != nil {
		return fmt.Errorf("client.ResetScope: %w", err)
	}
	s.Replace(attrs)
	return nil
}

func (c *Client) scopePath(id domain.ID) string {
	return c.scopesPath + "/" + url.PathEscape(id.String())
}
