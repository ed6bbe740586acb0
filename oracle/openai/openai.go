// Package openai implements the oracle over an OpenAI-compatible
// chat-completions endpoint (OpenAI, Azure-compatible gateways, Ollama,
// vLLM).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/core/response"
	"github.com/tailored-agentic-units/concierge/oracle"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxAttempts    = 3
)

// Provider talks to a chat-completions endpoint.
type Provider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	backoff     func(attempt int) time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithBackoff overrides the delay between retried attempts.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(p *Provider) {
		p.backoff = f
	}
}

// New creates a provider from configuration.
func New(cfg *oracle.Config, opts ...Option) *Provider {
	p := &Provider{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * 500 * time.Millisecond
		},
	}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

// Route forces a call to the routing function and returns its label.
func (p *Provider) Route(ctx context.Context, req oracle.RouteRequest) (string, error) {
	msgs := p.messages(req.Instruction, req.History)
	if req.Question != "" {
		msgs = append(msgs, wireMessage{Role: string(protocol.RoleUser), Content: req.Question})
	}

	body := p.body(msgs, []protocol.Tool{oracle.RouteTool(req.Labels)})
	body["tool_choice"] = map[string]any{
		"type":     "function",
		"function": map[string]any{"name": oracle.RouteFunction},
	}

	resp, err := p.complete(ctx, body)
	if err != nil {
		return "", err
	}

	for _, call := range resp.ToolCalls() {
		if call.Name == oracle.RouteFunction {
			return oracle.ParseRoute(call.Arguments)
		}
	}
	// Some compatible servers ignore tool_choice and answer in text.
	return strings.TrimSpace(resp.Content()), nil
}

// Respond asks the model for the next worker message.
func (p *Provider) Respond(ctx context.Context, req oracle.RespondRequest) (*oracle.Reply, error) {
	body := p.body(p.messages(req.Instruction, req.History), req.Tools)

	resp, err := p.complete(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, oracle.Violation("openai: response has no choices")
	}

	return &oracle.Reply{
		Content:   resp.Content(),
		ToolCalls: resp.ToolCalls(),
	}, nil
}

type wireMessage struct {
	Role       string              `json:"role"`
	Content    string              `json:"content"`
	ToolCallID string              `json:"tool_call_id,omitempty"`
	ToolCalls  []protocol.ToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string        `json:"type"`
	Function protocol.Tool `json:"function"`
}

func (p *Provider) messages(instruction string, history []protocol.Message) []wireMessage {
	msgs := make([]wireMessage, 0, len(history)+2)
	if instruction != "" {
		msgs = append(msgs, wireMessage{Role: string(protocol.RoleSystem), Content: instruction})
	}
	for _, m := range history {
		msgs = append(msgs, wireMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolCalls:  m.ToolCalls,
		})
	}
	return msgs
}

func (p *Provider) body(msgs []wireMessage, tools []protocol.Tool) map[string]any {
	body := map[string]any{
		"model":    p.model,
		"messages": msgs,
	}
	if p.temperature != 0 {
		body["temperature"] = p.temperature
	}
	if p.maxTokens > 0 {
		body["max_tokens"] = p.maxTokens
	}
	if len(tools) > 0 {
		wire := make([]wireTool, len(tools))
		for i, t := range tools {
			wire[i] = wireTool{Type: "function", Function: t}
		}
		body["tools"] = wire
	}
	return body
}

func (p *Provider) complete(ctx context.Context, body map[string]any) (*response.ToolsResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.backoff(attempt - 1)):
			}
		}

		data, status, err := p.post(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if status >= 200 && status < 300 {
			resp, err := response.ParseTools(data)
			if err != nil {
				return nil, oracle.Violation("openai: %v", err)
			}
			return resp, nil
		}

		lastErr = fmt.Errorf("openai status %d: %s", status, response.ParseError(data))
		if !retryable(status) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (p *Provider) post(ctx context.Context, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, err
	}
	return data, res.StatusCode, nil
}

func retryable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}
