package ai

import "context"

// StreamProvider streams chat completions.
type StreamProvider interface {
	// StreamMessage starts a generation. Errors that happen before the stream
	// opens (credentials, status, transport) are returned directly; errors
	// after that are yielded by the stream.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// PreflightChecker is implemented by providers that can tell, without a
// network call, that no request will succeed.
type PreflightChecker interface {
	Preflight() error
}
