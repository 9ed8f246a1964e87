// Package msgid canonicalizes RFC 5322 Message-ID values. Normalization
// is deliberately looser than full index validation: it only requires a
// local@domain shape, so it can also serve contexts like deep-link URL
// construction that accept identifiers the index would reject.
package msgid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when a value cannot be normalized into a
// Message-ID at all.
var ErrInvalid = errors.New("invalid message id")

// Normalize canonicalizes a raw Message-ID into bracketed <local@domain>
// form. At most one surrounding bracket pair is stripped before the
// brackets are re-added, so the call is idempotent on its own output.
func Normalize(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalid)
	}

	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")

	if !strings.Contains(id, "@") {
		return "", fmt.Errorf("%w: %q has no @", ErrInvalid, raw)
	}

	return "<" + id + ">", nil
}
