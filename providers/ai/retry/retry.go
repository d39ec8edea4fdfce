// Package retry wraps an ai.StreamProvider so that transient failures to
// open a stream are retried with exponential backoff. Errors raised after
// the stream has opened are never retried: fragments may already have been
// delivered.
//
//	provider := retry.Wrap(openai.New(), retry.Config{MaxRetries: 2})
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/leofalp/stageflow/internal/utils"
	"github.com/leofalp/stageflow/providers/ai"
)

// ErrExhausted is returned, wrapped together with the last provider error,
// when every attempt failed.
var ErrExhausted = errors.New("stageflow: all retry attempts exhausted")

// Config tunes the backoff. Zero values take the defaults noted per field.
type Config struct {
	// MaxRetries is the number of attempts after the first. Default 3.
	MaxRetries int
	// InitialBackoff is the wait before the first retry. Default 1s.
	InitialBackoff time.Duration
	// MaxBackoff caps a single wait. Default 30s.
	MaxBackoff time.Duration
	// BackoffFactor multiplies the wait on each retry. Default 2.
	BackoffFactor float64
	// JitterFraction adds up to this share of the wait as noise. Default 0.1.
	JitterFraction float64
	// Retryable decides whether err is worth another attempt. Default
	// IsRetryable.
	Retryable func(err error) bool
}

func (c *Config) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2
	}
	if c.JitterFraction == 0 {
		c.JitterFraction = 0.1
	}
	if c.Retryable == nil {
		c.Retryable = IsRetryable
	}
}

// IsRetryable reports whether err is a rate limit or a transient server
// error (429, 500, 502, 503, 504, 529).
func IsRetryable(err error) bool {
	var statusErr *utils.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	}
	return false
}

// Provider is the retrying wrapper.
type Provider struct {
	next   ai.StreamProvider
	config Config
}

var (
	_ ai.StreamProvider   = (*Provider)(nil)
	_ ai.PreflightChecker = (*Provider)(nil)
)

// Wrap returns next with retries applied.
func Wrap(next ai.StreamProvider, config Config) *Provider {
	config.applyDefaults()
	return &Provider{next: next, config: config}
}

// StreamMessage opens a stream, retrying retryable failures.
func (p *Provider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		stream, err := p.next.StreamMessage(ctx, request)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if ctx.Err() != nil || !p.config.Retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d retries: %w", ErrExhausted, p.config.MaxRetries, lastErr)
}

// Preflight forwards to the wrapped provider when it supports the check.
func (p *Provider) Preflight() error {
	if checker, ok := p.next.(ai.PreflightChecker); ok {
		return checker.Preflight()
	}
	return nil
}

// backoff is min(initial * factor^attempt, max) plus jitter.
func (p *Provider) backoff(attempt int) time.Duration {
	base := float64(p.config.InitialBackoff) * math.Pow(p.config.BackoffFactor, float64(attempt))
	base = min(base, float64(p.config.MaxBackoff))
	jitter := base * p.config.JitterFraction * rand.Float64() //nolint:gosec // jitter needs no crypto
	return time.Duration(base + jitter)
}
