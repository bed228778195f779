package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationErrors maps a field name to the messages reported for it, as
// returned by the admin API under the "errors" key.
type ValidationErrors map[string][]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", f, strings.Join(e[f], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the messages for a field, or nil.
func (e ValidationErrors) Field(name string) []string {
	if e == nil {
		return nil
	}
	return e[name]
}
