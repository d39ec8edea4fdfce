package openai

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/leofalp/stageflow/providers/ai"
)

const (
	// DefaultBaseURL is used when neither OPENAI_BASE_URL nor WithBaseURL is set.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when a request names no model.
	DefaultModel = "gpt-5-mini"

	chatCompletionsEndpoint = "/chat/completions"
)

var _ ai.PreflightChecker = (*Provider)(nil)

// Provider implements ai.StreamProvider against the chat completions API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New creates a provider configured from the environment.
func New() *Provider {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   DefaultModel,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the bearer token.
func (p *Provider) WithAPIKey(apiKey string) *Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the API root, e.g. http://localhost:11434/v1.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return p
}

// WithModel sets the default model.
func (p *Provider) WithModel(model string) *Provider {
	if model != "" {
		p.model = model
	}
	return p
}

// WithHTTPClient sets the HTTP client. Streaming responses can last minutes,
// so the client should not carry a short overall Timeout.
func (p *Provider) WithHTTPClient(client *http.Client) *Provider {
	if client != nil {
		p.client = client
	}
	return p
}

// Model returns the default model.
func (p *Provider) Model() string {
	return p.model
}

// BaseURL returns the API root.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// Preflight reports ai.ErrMissingAPIKey when no key is configured and
// ai.ErrUnreachable when the base URL is not an absolute http(s) URL.
func (p *Provider) Preflight() error {
	if p.apiKey == "" {
		return ai.ErrMissingAPIKey
	}
	parsed, err := url.Parse(p.baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%w: invalid base URL %q", ai.ErrUnreachable, p.baseURL)
	}
	return nil
}
