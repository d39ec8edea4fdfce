package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/stageflow/providers/ai"
)

func sseBody(fragments ...string) string {
	var b strings.Builder
	for _, fragment := range fragments {
		payload, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"delta": map[string]any{"content": fragment}}},
		})
		b.WriteString("data: ")
		b.Write(payload)
		b.WriteString("\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func newTestProvider(server *httptest.Server) *Provider {
	return New().WithAPIKey("sk-test").WithBaseURL(server.URL).WithHTTPClient(server.Client())
}

// TestStreamMessage_Success_YieldsDecodedFragments checks the request body
// and that SSE deltas come back as plain fragments.
func TestStreamMessage_Success_YieldsDecodedFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if !body.Stream || body.Model != DefaultModel || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sseBody("- Step ", "one"))
	}))
	defer server.Close()

	stream, err := newTestProvider(server).StreamMessage(context.Background(), ai.NewChatRequest("sys", "user"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if text != "- Step one" {
		t.Errorf("expected %q, got %q", "- Step one", text)
	}
}

func TestStreamMessage_RequestModel_OverridesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "gpt-4.1-nano" {
			t.Errorf("expected request model, got %q", body.Model)
		}
		_, _ = io.WriteString(w, sseBody())
	}))
	defer server.Close()

	request := ai.NewChatRequest("sys", "user")
	request.Model = "gpt-4.1-nano"
	stream, err := newTestProvider(server).StreamMessage(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
}

func TestStreamMessage_NoAPIKey_ReturnsMissingKey(t *testing.T) {
	_, err := New().WithAPIKey("").StreamMessage(context.Background(), ai.NewChatRequest("s", "u"))
	if !errors.Is(err, ai.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

// TestStreamMessage_Unauthorized_ReturnsPreflightError maps a 401 onto the
// unauthorized sentinel.
func TestStreamMessage_Unauthorized_ReturnsPreflightError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestProvider(server).StreamMessage(context.Background(), ai.NewChatRequest("s", "u"))
	if !errors.Is(err, ai.ErrUnauthorized) || !ai.IsPreflight(err) {
		t.Fatalf("expected unauthorized pre-flight error, got %v", err)
	}
}

func TestStreamMessage_ServerError_NotPreflight(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestProvider(server).StreamMessage(context.Background(), ai.NewChatRequest("s", "u"))
	if err == nil || ai.IsPreflight(err) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestStreamMessage_Unreachable_ReturnsPreflightError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	provider := newTestProvider(server)
	server.Close()

	_, err := provider.StreamMessage(context.Background(), ai.NewChatRequest("s", "u"))
	if !errors.Is(err, ai.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

// TestStreamMessage_CancelledMidStream_YieldsContextError cancels after the
// first fragment and expects the stream to end with the context error.
func TestStreamMessage_CancelledMidStream_YieldsContextError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.TrimSuffix(sseBody("first"), "data: [DONE]\n\n"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := newTestProvider(server).StreamMessage(ctx, ai.NewChatRequest("s", "u"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fragments []string
	var streamErr error
	for fragment, err := range stream.Iter() {
		if err != nil {
			streamErr = err
			break
		}
		fragments = append(fragments, fragment)
		cancel()
	}
	if len(fragments) != 1 || !errors.Is(streamErr, context.Canceled) {
		t.Errorf("got fragments %q err %v", fragments, streamErr)
	}
}

func TestPreflight_Table(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		baseURL string
		want    error
	}{
		{name: "configured", apiKey: "sk-test", baseURL: "http://localhost:8080/v1"},
		{name: "missing key", baseURL: "https://api.openai.com/v1", want: ai.ErrMissingAPIKey},
		{name: "relative url", apiKey: "sk-test", baseURL: "localhost/v1", want: ai.ErrUnreachable},
		{name: "bad scheme", apiKey: "sk-test", baseURL: "ftp://example.com", want: ai.ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &Provider{apiKey: tt.apiKey, baseURL: tt.baseURL}
			err := provider.Preflight()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Preflight() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Preflight() = %v, want %v", err, tt.want)
			}
		})
	}
}
