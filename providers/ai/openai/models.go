package openai

import "github.com/leofalp/stageflow/providers/ai"

// chatCompletionRequest is the wire body of a streaming chat completion.
type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func requestToChatCompletion(request ai.ChatRequest, defaultModel string) chatCompletionRequest {
	model := request.Model
	if model == "" {
		model = defaultModel
	}
	messages := make([]chatMessage, 0, len(request.Messages))
	for _, message := range request.Messages {
		messages = append(messages, chatMessage{Role: string(message.Role), Content: message.Content})
	}
	return chatCompletionRequest{Model: model, Messages: messages, Stream: true}
}
