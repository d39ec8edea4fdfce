// Package openai streams chat completions from OpenAI-compatible endpoints.
//
// [New] reads OPENAI_API_KEY and OPENAI_BASE_URL from the environment; the
// With* methods override them. [Provider.StreamMessage] posts to
// {baseURL}/chat/completions with stream=true and decodes the response with
// the core/sse decoder, so any server speaking the chat-completions
// streaming format works (OpenAI, Azure, Ollama, OpenRouter, vLLM).
package openai
