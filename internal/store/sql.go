package store

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotReadOnly = errors.New("only read-only statements are allowed")

var readOnlyKeywords = []string{"SELECT", "WITH", "EXPLAIN", "VALUES"}

// CheckReadOnly rejects statements that do not start with a query keyword or
// that chain several statements.
func CheckReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" {
		return fmt.Errorf("query must not be empty")
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}

	first := strings.ToUpper(strings.Fields(trimmed)[0])
	for _, kw := range readOnlyKeywords {
		if first == kw {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotReadOnly, first)
}
