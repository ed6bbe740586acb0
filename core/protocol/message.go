// Package protocol defines the wire-neutral conversation types shared by the
// session log, the graph nodes, and every oracle provider.
package protocol

import (
	"encoding/json"
	"strings"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation request emitted by the oracle.
// Arguments is the raw JSON object proposed by the model and is untrusted.
//
// Fields are flat for use across the runtime. MarshalJSON and UnmarshalJSON
// speak the nested chat-completions format (function.name, function.arguments)
// so provider payloads decode directly into this type.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MarshalJSON serializes to the nested {id, type, function: {name, arguments}} form.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string       `json:"id"`
		Type     string       `json:"type"`
		Function functionCall `json:"function"`
	}{
		ID:       tc.ID,
		Type:     "function",
		Function: functionCall{Name: tc.Name, Arguments: tc.Arguments},
	})
}

// UnmarshalJSON accepts both the nested provider form and the flat form.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var nested struct {
		ID       string       `json:"id"`
		Function functionCall `json:"function"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}

	if nested.Function.Name != "" {
		tc.ID = nested.ID
		tc.Name = nested.Function.Name
		tc.Arguments = nested.Function.Arguments
		return nil
	}

	type plain ToolCall
	return json.Unmarshal(data, (*plain)(tc))
}

// Message is one entry of the conversation log.
//
// Assistant messages may carry ToolCalls. Tool messages carry the ToolCallID
// they answer and set IsError when the invocation failed. Author records the
// worker that produced an assistant or tool message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Author     string     `json:"author,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// NewMessage creates a Message with the given role and content.
//
//	msg := protocol.NewMessage(protocol.RoleUser, "find me headphones")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewToolResult creates the tool message answering the call with the given id.
func NewToolResult(callID, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		IsError:    isError,
	}
}

// HasToolCalls reports whether the message requests at least one tool.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// HasText reports whether the message carries non-blank text.
func (m Message) HasText() bool {
	return strings.TrimSpace(m.Content) != ""
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}
