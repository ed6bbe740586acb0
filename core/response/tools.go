// Package response decodes chat-completions responses returned by
// OpenAI-compatible endpoints.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/concierge/core/protocol"
)

// TokenUsage reports token consumption for a single completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion alternative.
type Choice struct {
	Index   int `json:"index"`
	Message struct {
		Role      string              `json:"role"`
		Content   string              `json:"content"`
		ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
	} `json:"message"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ToolsResponse is a chat-completions response to a request that offered tools.
type ToolsResponse struct {
	ID      string      `json:"id,omitempty"`
	Object  string      `json:"object,omitempty"`
	Created int64       `json:"created,omitempty"`
	Model   string      `json:"model"`
	Choices []Choice    `json:"choices"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// ParseTools parses a tools response from JSON bytes.
func ParseTools(body []byte) (*ToolsResponse, error) {
	var response ToolsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}
	return &response, nil
}

// Content returns the text of the first choice, or "" when there is none.
func (r *ToolsResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ToolCalls returns the tool calls of the first choice.
func (r *ToolsResponse) ToolCalls() []protocol.ToolCall {
	if len(r.Choices) == 0 {
		return nil
	}
	return r.Choices[0].Message.ToolCalls
}

// ErrorResponse is the error envelope returned by OpenAI-compatible endpoints.
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code,omitempty"`
	} `json:"error"`
}

// ParseError extracts the error message from a failed response body. It
// falls back to the raw body when the envelope is not recognised.
func ParseError(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(body)
}
