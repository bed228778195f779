package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a server-assigned entity identifier. The admin API hands out UUIDs,
// but numeric ids are accepted as well and kept in their decimal form.
// The zero value means the entity has not been persisted yet.
type ID string

// String returns the identifier as-is.
func (id ID) String() string { return string(id) }

// MarshalJSON encodes an empty ID as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}
