package flowdex

import "github.com/flowhub-cloud/flowdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound              = domain.ErrNotFound
	ErrInvalidIdentifier     = domain.ErrInvalidIdentifier
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
)
