// Package gemini implements the oracle over Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/oracle"
)

const (
	defaultModel   = "gemini-1.5-flash"
	roleUser       = "user"
	roleModel      = "model"
	continuePrompt = "Continue."
)

// RawArgumentsKey carries tool call arguments that were not a JSON object.
const RawArgumentsKey = "raw_arguments"

// Provider wraps a genai client.
type Provider struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// New creates a provider. The API key falls back to GOOGLE_API_KEY.
func New(ctx context.Context, cfg *oracle.Config, opts ...option.ClientOption) (*Provider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: api key is not set")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(key)}, opts...)
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) Name() string {
	return "gemini"
}

// Route forces a call to the routing function and returns its label.
func (p *Provider) Route(ctx context.Context, req oracle.RouteRequest) (string, error) {
	m := p.generativeModel(req.Instruction, []protocol.Tool{oracle.RouteTool(req.Labels)})
	m.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingAny,
			AllowedFunctionNames: []string{oracle.RouteFunction},
		},
	}

	history := contents(req.History)
	if req.Question != "" {
		history = appendParts(history, roleUser, genai.Text(req.Question))
	}

	resp, err := p.send(ctx, m, history)
	if err != nil {
		return "", err
	}

	text, calls := parts(resp)
	for _, call := range calls {
		if call.Name == oracle.RouteFunction {
			return oracle.ParseRoute(call.Arguments)
		}
	}
	return strings.TrimSpace(text), nil
}

// Respond asks the model for the next worker message.
func (p *Provider) Respond(ctx context.Context, req oracle.RespondRequest) (*oracle.Reply, error) {
	m := p.generativeModel(req.Instruction, req.Tools)

	resp, err := p.send(ctx, m, contents(req.History))
	if err != nil {
		return nil, err
	}

	text, calls := parts(resp)
	return &oracle.Reply{Content: text, ToolCalls: calls}, nil
}

func (p *Provider) generativeModel(instruction string, tools []protocol.Tool) *genai.GenerativeModel {
	m := p.client.GenerativeModel(p.model)
	if instruction != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	}
	if p.temperature != 0 {
		m.SetTemperature(float32(p.temperature))
	}
	if p.maxTokens > 0 {
		m.SetMaxOutputTokens(int32(p.maxTokens))
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(tools))
		for i, t := range tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toSchema(t.Parameters),
			}
		}
		m.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return m
}

func (p *Provider) send(ctx context.Context, m *genai.GenerativeModel, history []*genai.Content) (*genai.GenerateContentResponse, error) {
	if n := len(history); n == 0 || history[n-1].Role != roleUser {
		history = appendParts(history, roleUser, genai.Text(continuePrompt))
	}

	cs := m.StartChat()
	cs.History = history[:len(history)-1]
	return cs.SendMessage(ctx, history[len(history)-1].Parts...)
}

// contents maps the log onto user/model turns. Function responses need the
// function name, which is recovered from the originating tool call.
func contents(history []protocol.Message) []*genai.Content {
	names := make(map[string]string)
	var out []*genai.Content

	for _, m := range history {
		switch m.Role {
		case protocol.RoleUser:
			if m.HasText() {
				out = appendParts(out, roleUser, genai.Text(m.Content))
			}
		case protocol.RoleAssistant:
			var ps []genai.Part
			if m.HasText() {
				ps = append(ps, genai.Text(m.Content))
			}
			for _, call := range m.ToolCalls {
				names[call.ID] = call.Name
				ps = append(ps, genai.FunctionCall{Name: call.Name, Args: arguments(call.Arguments)})
			}
			if len(ps) > 0 {
				out = appendParts(out, roleModel, ps...)
			}
		case protocol.RoleTool:
			out = appendParts(out, roleUser, genai.FunctionResponse{
				Name: names[m.ToolCallID],
				Response: map[string]any{
					"content":  m.Content,
					"is_error": m.IsError,
				},
			})
		}
	}
	return out
}

func appendParts(out []*genai.Content, role string, ps ...genai.Part) []*genai.Content {
	if n := len(out); n > 0 && out[n-1].Role == role {
		out[n-1].Parts = append(out[n-1].Parts, ps...)
		return out
	}
	return append(out, &genai.Content{Role: role, Parts: ps})
}

func parts(resp *genai.GenerateContentResponse) (string, []protocol.ToolCall) {
	var text strings.Builder
	var calls []protocol.ToolCall
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args, _ := json.Marshal(v.Args)
			calls = append(calls, protocol.ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      v.Name,
				Arguments: string(args),
			})
		}
	}
	return text.String(), calls
}

// arguments decodes the arguments of a logged tool call. Gemini needs an
// object here, so text that is not a JSON object is passed through under
// RawArgumentsKey rather than dropped; the tool node already answered such a
// call with an error result.
func arguments(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{RawArgumentsKey: raw}
	}
	return args
}

// toSchema converts a JSON Schema map into the genai subset.
func toSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}

	s := &genai.Schema{}
	switch m["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	}

	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, v := range props {
			if pm, ok := v.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	s.Required = stringList(m["required"])
	s.Enum = stringList(m["enum"])
	if len(s.Enum) > 0 && s.Type == genai.TypeString {
		s.Format = "enum"
	}
	return s
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
