// Package slug derives stable URL-safe identifiers from template names and
// enforces the path-safety invariant at storage boundaries.
package slug

import (
	"fmt"
	"strings"

	"github.com/flowhub-cloud/flowdex/internal/domain"
)

// Slugify lowercases the name, turns whitespace runs into single hyphens,
// strips everything outside [a-z0-9_-], collapses hyphen runs and trims
// leading/trailing hyphens. Deterministic: no randomness, no locale
// dependence. Collisions between distinct names are resolved
// last-writer-wins at the store layer.
func Slugify(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(lower))
	lastHyphen := false
	for _, r := range lower {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	return strings.Trim(b.String(), "-")
}

// Validate rejects slugs that could escape the corpus directory. Any
// traversal sequence, separator, or character outside [a-z0-9_-] fails with
// domain.ErrInvalidIdentifier. Called before any filesystem operation.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("empty slug: %w", domain.ErrInvalidIdentifier)
	}
	if strings.Contains(s, "..") || strings.ContainsAny(s, "/\\") {
		return fmt.Errorf("slug %q contains path sequence: %w", s, domain.ErrInvalidIdentifier)
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			continue
		}
		return fmt.Errorf("slug %q contains invalid character %q: %w", s, r, domain.ErrInvalidIdentifier)
	}
	return nil
}
