package domain

import "slices"

// Grant types an OAuth client can be allowed to use, in checklist order.
var AllGrantTypes = []string{
	"client_credentials",
	"password",
	"authorization_code",
	"refresh_token",
	"implicit",
}

// GrantType is one entry of a client's grant type checklist.
type GrantType struct {
	Label   string
	Enabled bool
}

// ScopeAssociation links a client to a scope. The scope is shared with
// whoever else holds the pointer, not copied.
type ScopeAssociation struct {
	Scope *Scope
}

// Client is an OAuth client managed through the admin API.
type Client struct {
	ID                   ID
	Secret               string
	RedirectURIs         []string
	AuthorizeScope       bool
	AuthorizedScopes     []ScopeAssociation
	SupportedGrantTypes  []string
	GrantTypes           []GrantType
	AccessTokenTTL       int
	AuthorizationCodeTTL int
	PKCE                 bool

	// Errors holds the field errors of the last failed save or validation, nil otherwise.
	Errors ValidationErrors
}

// ClientAttributes is the wire form of a client as returned by the server.
type ClientAttributes struct {
	ID                   *ID                `json:"id,omitempty"`
	Secret               *string            `json:"secret,omitempty"`
	RedirectURIs         *[]string          `json:"redirect_uris,omitempty"`
	AuthorizeScope       *bool              `json:"authorize_scope,omitempty"`
	AuthorizedScopes     *[]ScopeAttributes `json:"authorized_scopes,omitempty"`
	SupportedGrantTypes  *[]string          `json:"supported_grant_types,omitempty"`
	AccessTokenTTL       *int               `json:"access_token_ttl,omitempty"`
	AuthorizationCodeTTL *int               `json:"authorization_code_ttl,omitempty"`
	PKCE                 *bool              `json:"pkce,omitempty"`
}

// ClientPayload is the exact shape sent to the server on create and update.
type ClientPayload struct {
	ID                   ID             `json:"id" yaml:"id"`
	Secret               string         `json:"secret" yaml:"secret"`
	RedirectURIs         []string       `json:"redirect_uris" yaml:"redirect_uris"`
	AuthorizeScope       bool           `json:"authorize_scope" yaml:"authorize_scope"`
	AccessTokenTTL       int            `json:"access_token_ttl" yaml:"access_token_ttl"`
	AuthorizationCodeTTL int            `json:"authorization_code_ttl" yaml:"authorization_code_ttl"`
	PKCE                 bool           `json:"pkce" yaml:"pkce"`
	AuthorizedScopes     []ScopePayload `json:"authorized_scopes" yaml:"authorized_scopes"`
	SupportedGrantTypes  []string       `json:"supported_grant_types" yaml:"supported_grant_types"`
}

// NewClient builds a client from server attributes on top of the defaults:
// no redirect uris, no authorized scopes and every grant type enabled.
func NewClient(attrs ClientAttributes) *Client {
	c := &Client{
		RedirectURIs:     []string{},
		AuthorizedScopes: []ScopeAssociation{},
		GrantTypes:       grantChecklist(func(string) bool { return true }),
	}
	c.Assign(attrs)
	return c
}

// Assign merges the attributes present in attrs into c.
func (c *Client) Assign(attrs ClientAttributes) {
	if attrs.ID != nil {
		c.ID = *attrs.ID
	}
	if attrs.Secret != nil {
		c.Secret = *attrs.Secret
	}
	if attrs.RedirectURIs != nil {
		c.RedirectURIs = slices.Clone(*attrs.RedirectURIs)
	}
	if attrs.AuthorizeScope != nil {
		c.AuthorizeScope = *attrs.AuthorizeScope
	}
	if attrs.AuthorizedScopes != nil {
		c.AuthorizedScopes = make([]ScopeAssociation, 0, len(*attrs.AuthorizedScopes))
		for _, s := range *attrs.AuthorizedScopes {
			c.AuthorizedScopes = append(c.AuthorizedScopes, ScopeAssociation{Scope: NewScope(s)})
		}
	}
	if attrs.SupportedGrantTypes != nil {
		supported := *attrs.SupportedGrantTypes
		c.SupportedGrantTypes = slices.Clone(supported)
		c.GrantTypes = grantChecklist(func(label string) bool {
			return slices.Contains(supported, label)
		})
	}
	if attrs.AccessTokenTTL != nil {
		c.AccessTokenTTL = *attrs.AccessTokenTTL
	}
	if attrs.AuthorizationCodeTTL != nil {
		c.AuthorizationCodeTTL = *attrs.AuthorizationCodeTTL
	}
	if attrs.PKCE != nil {
		c.PKCE = *attrs.PKCE
	}
}

func grantChecklist(enabled func(label string) bool) []GrantType {
	list := make([]GrantType, len(AllGrantTypes))
	for i, label := range AllGrantTypes {
		list[i] = GrantType{Label: label, Enabled: enabled(label)}
	}
	return list
}

// Persisted reports whether the client has a server-assigned id.
func (c *Client) Persisted() bool {
	return c.ID != ""
}

// EnabledGrantTypes returns the checked labels of the grant type checklist, in checklist order.
func (c *Client) EnabledGrantTypes() []string {
	labels := []string{}
	for _, g := range c.GrantTypes {
		if g.Enabled {
			labels = append(labels, g.Label)
		}
	}
	return labels
}

// SetGrantType checks or unchecks a grant type. Unknown labels are ignored
// and reported with false.
func (c *Client) SetGrantType(label string, enabled bool) bool {
	for i := range c.GrantTypes {
		if c.GrantTypes[i].Label == label {
			c.GrantTypes[i].Enabled = enabled
			return true
		}
	}
	return false
}

// AddScope associates an existing scope with the client.
func (c *Client) AddScope(s *Scope) {
	c.AuthorizedScopes = append(c.AuthorizedScopes, ScopeAssociation{Scope: s})
}

// RemoveScope drops the association at index i.
func (c *Client) RemoveScope(i int) {
	if i < 0 || i >= len(c.AuthorizedScopes) {
		return
	}
	c.AuthorizedScopes = slices.Delete(c.AuthorizedScopes, i, i+1)
}

// Serialized projects the client to its wire payload.
func (c *Client) Serialized() ClientPayload {
	scopes := make([]ScopePayload, 0, len(c.AuthorizedScopes))
	for _, a := range c.AuthorizedScopes {
		if a.Scope == nil {
			continue
		}
		scopes = append(scopes, a.Scope.Serialized())
	}
	uris := c.RedirectURIs
	if uris == nil {
		uris = []string{}
	}
	return ClientPayload{
		ID:                   c.ID,
		Secret:               c.Secret,
		RedirectURIs:         slices.Clone(uris),
		AuthorizeScope:       c.AuthorizeScope,
		AccessTokenTTL:       c.AccessTokenTTL,
		AuthorizationCodeTTL: c.AuthorizationCodeTTL,
		PKCE:                 c.PKCE,
		AuthorizedScopes:     scopes,
		SupportedGrantTypes:  c.EnabledGrantTypes(),
	}
}

// Validate checks the authorized scopes before a save: every association must
// point at a persisted scope and scope ids must be unique. The first offending
// association decides the error.
func (c *Client) Validate() error {
	for _, a := range c.AuthorizedScopes {
		if a.Scope == nil || !a.Scope.Persisted() {
			return ValidationErrors{"authorized_scopes": {"cannot be empty"}}
		}
		count := 0
		for _, other := range c.AuthorizedScopes {
			if other.Scope != nil && other.Scope.ID == a.Scope.ID {
				count++
			}
		}
		if count > 1 {
			return ValidationErrors{"authorized_scopes": {"must be unique"}}
		}
	}
	return nil
}
