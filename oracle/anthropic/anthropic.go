// Package anthropic implements the oracle over the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/oracle"
)

const (
	defaultMaxTokens = 1024
	continuePrompt   = "Continue."
)

// Provider wraps the Anthropic SDK client.
type Provider struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// New creates a provider. The API key falls back to ANTHROPIC_API_KEY.
func New(cfg *oracle.Config, opts ...option.RequestOption) (*Provider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("anthropic: api key is not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Provider{
		client:      anthropic.NewClient(reqOpts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Route forces a call to the routing tool and returns its label.
func (p *Provider) Route(ctx context.Context, req oracle.RouteRequest) (string, error) {
	msgs := convert(req.History)
	if req.Question != "" {
		msgs = appendBlocks(msgs, anthropic.MessageParamRoleUser, anthropic.NewTextBlock(req.Question))
	}

	params := p.params(req.Instruction, msgs, []protocol.Tool{oracle.RouteTool(req.Labels)})
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: oracle.RouteFunction},
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			if variant.Name == oracle.RouteFunction {
				return oracle.ParseRoute(string(variant.Input))
			}
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}

// Respond asks the model for the next worker message.
func (p *Provider) Respond(ctx context.Context, req oracle.RespondRequest) (*oracle.Reply, error) {
	msgs := convert(req.History)
	if n := len(msgs); n == 0 || msgs[n-1].Role != anthropic.MessageParamRoleUser {
		msgs = appendBlocks(msgs, anthropic.MessageParamRoleUser, anthropic.NewTextBlock(continuePrompt))
	}

	resp, err := p.client.Messages.New(ctx, p.params(req.Instruction, msgs, req.Tools))
	if err != nil {
		return nil, err
	}

	reply := &oracle.Reply{}
	var text strings.Builder
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			reply.ToolCalls = append(reply.ToolCalls, protocol.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(variant.Input),
			})
		}
	}
	reply.Content = text.String()
	return reply, nil
}

func (p *Provider) params(instruction string, msgs []anthropic.MessageParam, tools []protocol.Tool) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  msgs,
	}
	if instruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: instruction}}
	}
	if p.temperature != 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}
	if len(tools) > 0 {
		params.Tools = toolParams(tools)
	}
	return params
}

func toolParams(tools []protocol.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters["properties"],
					Required:   required(t.Parameters["required"]),
				},
			},
		}
	}
	return out
}

func required(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, s := range r {
			if name, ok := s.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}

// convert maps the log onto alternating user/assistant turns. Tool results
// become tool_result blocks inside a user turn.
func convert(history []protocol.Message) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam
	for _, m := range history {
		switch m.Role {
		case protocol.RoleUser:
			if m.HasText() {
				msgs = appendBlocks(msgs, anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
			}
		case protocol.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.HasText() {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				msgs = appendBlocks(msgs, anthropic.MessageParamRoleAssistant, blocks...)
			}
		case protocol.RoleTool:
			msgs = appendBlocks(msgs, anthropic.MessageParamRoleUser,
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		}
	}
	return msgs
}

func appendBlocks(msgs []anthropic.MessageParam, role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) []anthropic.MessageParam {
	if n := len(msgs); n > 0 && msgs[n-1].Role == role {
		msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
		return msgs
	}
	return append(msgs, anthropic.MessageParam{Role: role, Content: blocks})
}

func input(arguments string) json.RawMessage {
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	return json.RawMessage(`{}`)
}
