package domain

// Scope is an OAuth scope managed through the admin API.
type Scope struct {
	ID     ID
	Name   string
	Public bool

	// Edit is a UI-only flag set while the scope is being edited. It is never sent to the server.
	Edit bool

	// Errors holds the field errors of the last failed save, nil otherwise.
	Errors ValidationErrors
}

// ScopeAttributes is the wire form of a scope as returned by the server.
// Pointer fields distinguish keys absent from a response from zero values.
type ScopeAttributes struct {
	ID     *ID     `json:"id,omitempty"`
	Name   *string `json:"name,omitempty"`
	Public *bool   `json:"public,omitempty"`
	Edit   *bool   `json:"edit,omitempty"`
}

// ScopePayload is the exact shape sent to the server on create and update.
type ScopePayload struct {
	ID     ID     `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Public bool   `json:"public" yaml:"public"`
}

// NewScope builds a scope from server attributes on top of the defaults.
func NewScope(attrs ScopeAttributes) *Scope {
	s := &Scope{}
	s.Assign(attrs)
	return s
}

// Assign merges the attributes present in attrs into s.
func (s *Scope) Assign(attrs ScopeAttributes) {
	if attrs.ID != nil {
		s.ID = *attrs.ID
	}
	if attrs.Name != nil {
		s.Name = *attrs.Name
	}
	if attrs.Public != nil {
		s.Public = *attrs.Public
	}
	if attrs.Edit != nil {
		s.Edit = *attrs.Edit
	}
}

// Persisted reports whether the scope has a server-assigned id.
func (s *Scope) Persisted() bool {
	return s.ID != ""
}

// Serialized projects the scope to its wire payload.
func (s *Scope) Serialized() ScopePayload {
	return ScopePayload{
		ID:     s.ID,
		Name:   s.Name,
		Public: s.Public,
	}
}

// Attributes returns the serialized scope in attribute form, e.g. to hydrate a copy.
func (p ScopePayload) Attributes() ScopeAttributes {
	id, name, public := p.ID, p.Name, p.Public
	return ScopeAttributes{ID: &id, Name: &name, Public: &public}
}

// Replace resets s to the defaults and then applies attrs, dropping any local edits.
func (s *Scope) Replace(attrs ScopeAttributes) {
	*s = Scope{}
	s.Assign(attrs)
}
