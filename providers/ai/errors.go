package ai

import "errors"

var (
	// ErrMissingAPIKey is returned before any request is made when no
	// credential is configured.
	ErrMissingAPIKey = errors.New("stageflow: API key is not set")

	// ErrUnauthorized wraps 401 and 403 responses.
	ErrUnauthorized = errors.New("stageflow: endpoint rejected credentials")

	// ErrUnreachable wraps transport failures that happen before a response
	// arrives (DNS, refused connection, TLS).
	ErrUnreachable = errors.New("stageflow: endpoint unreachable")
)

// IsPreflight reports whether err means no request to this endpoint can
// succeed, as opposed to a failure of one particular generation.
func IsPreflight(err error) bool {
	return errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrUnreachable)
}
