package domain

import "errors"

var (
	// ErrNotFound signals a missing template or index artifact.
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier signals a slug that fails the path-safety check.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrMalformedDocument signals a stored file that fails to parse.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrAuthenticationFailed signals that no regional endpoint accepted credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrUpstreamUnavailable signals a non-success response from a paginated source mid-run.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrGenerationUnavailable signals a generative model provider failure.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)
