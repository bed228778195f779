package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// ListClients fetches every OAuth client.
func (c *Client) ListClients(ctx context.Context) ([]*domain.Client, error) {
	var attrs []domain.ClientAttributes
	if err := c.get(ctx, c.clientsPath, &attrs); err != nil {
		return nil, fmt.Errorf("client.ListClients: %w", err)
	}
	clients := make([]*domain.Client, 0, len(attrs))
	for _, a := range attrs {
		clients = append(clients, domain.NewClient(a))
	}
	return clients, nil
}

// GetClient fetches a single OAuth client by ID.
func (c *Client) GetClient(ctx context.Context, id domain.ID) (*domain.Client, error) {
	var attrs domain.ClientAttributes
	if err := c.get(ctx, c.clientPath(id), &attrs); err != nil {
		return nil, fmt.Errorf("client.GetClient: %w", err)
	}
	return domain.NewClient(attrs), nil
}

// SaveClient validates oc, then creates or updates it and merges the server's
// answer back. Validation and server field errors are stored on oc.Errors
// and returned as domain.ValidationErrors; a client failing validation is
// not sent.
func (c *Client) SaveClient(ctx context.Context, oc *domain.Client) error {
	oc.Errors = nil
	if err := oc.Validate(); err != nil {
		return saveFailed(&oc.Errors, "client.SaveClient", err)
	}
	body := map[string]any{"client": oc.Serialized()}

	var (
		attrs domain.ClientAttributes
		err   error
	)
	if oc.Persisted() {
		err = c.doRequest(ctx, http.MethodPatch, c.clientPath(oc.ID), body, &attrs)
	} else {
		err = c.doRequest(ctx, http.MethodPost, c.clientsPath, body, &attrs)
	}
	if err != nil {
		return saveFailed(&oc.Errors, "client.SaveClient", err)
	}
	oc.Assign(attrs)
	return nil
}

// DeleteClient deletes oc on the server. oc itself is left untouched.
func (c *Client) DeleteClient(ctx context.Context, oc *domain.Client) error {
	if err := c.doRequest(ctx, http.MethodDelete, c.clientPath(oc.ID), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteClient: %w", err)
	}
	return nil
}

func (c *Client) clientPath(id domain.ID) string {
	return c.clientsPath + "/" + url.PathEscape(id.String())
}
