package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/leofalp/stageflow/core/sse"
	"github.com/leofalp/stageflow/internal/utils"
	"github.com/leofalp/stageflow/providers/ai"
	"github.com/leofalp/stageflow/providers/observability"
)

var _ ai.StreamProvider = (*Provider)(nil)

// StreamMessage posts request with stream=true and returns the decoded
// fragments. Missing credentials, 401/403 responses and transport failures
// wrap the ai pre-flight sentinels. The response body is closed when the
// returned stream finishes or is abandoned.
func (p *Provider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	body := requestToChatCompletion(request, p.model)

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "openai"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, body.Model),
		)
	}

	if p.apiKey == "" {
		return nil, ai.ErrMissingAPIKey
	}

	response, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, body)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	observer := observability.ObserverFromContext(ctx)
	iterator := func(yield func(string, error) bool) {
		defer utils.CloseWithLog(response.Body)

		fragments := 0
		for fragment, readErr := range sse.Read(response.Body) {
			if readErr != nil {
				if ctx.Err() != nil {
					readErr = ctx.Err()
				}
				yield("", fmt.Errorf("stream read: %w", readErr))
				return
			}
			fragments++
			if !yield(fragment, nil) {
				return
			}
		}
		if ctx.Err() != nil {
			yield("", ctx.Err())
			return
		}
		if observer != nil {
			observer.Trace(ctx, "openai stream finished",
				observability.String(observability.AttrLLMModel, body.Model),
				observability.Int(observability.AttrLLMFragments, fragments),
			)
		}
	}

	return ai.NewChatStream(iterator), nil
}

// classifyError maps errors from opening the stream onto the ai sentinels.
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ai.ErrUnauthorized, err)
		}
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ai.ErrUnreachable, err)
	}
	return err
}
