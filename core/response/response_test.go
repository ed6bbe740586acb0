package response_test

import (
	"testing"

	"github.com/tailored-agentic-units/concierge/core/response"
)

func TestParseTools_ToolCalls(t *testing.T) {
	body := `{
		"id": "chatcmpl-123",
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_abc",
					"type": "function",
					"function": {"name": "add_to_cart", "arguments": "{\"product_id\":3,\"quantity\":2}"}
				}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`

	resp, err := response.ParseTools([]byte(body))
	if err != nil {
		t.Fatalf("ParseTools failed: %v", err)
	}

	calls := resp.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(calls))
	}
	if calls[0].Name != "add_to_cart" {
		t.Errorf("got name %q, want %q", calls[0].Name, "add_to_cart")
	}
	if calls[0].Arguments != `{"product_id":3,"quantity":2}` {
		t.Errorf("got arguments %q", calls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("got usage %+v, want total 15", resp.Usage)
	}
}

func TestParseTools_Content(t *testing.T) {
	body := `{"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"Here you go."}}]}`

	resp, err := response.ParseTools([]byte(body))
	if err != nil {
		t.Fatalf("ParseTools failed: %v", err)
	}
	if got := resp.Content(); got != "Here you go." {
		t.Errorf("got content %q", got)
	}
}

func TestParseTools_EmptyChoices(t *testing.T) {
	resp, err := response.ParseTools([]byte(`{"model":"m","choices":[]}`))
	if err != nil {
		t.Fatalf("ParseTools failed: %v", err)
	}
	if resp.Content() != "" || resp.ToolCalls() != nil {
		t.Errorf("expected empty content and no tool calls")
	}
}

func TestParseTools_Invalid(t *testing.T) {
	if _, err := response.ParseTools([]byte(`{`)); err == nil {
		t.Error("expected error for malformed body")
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "envelope", body: `{"error":{"message":"rate limited","type":"requests"}}`, want: "rate limited"},
		{name: "raw", body: `upstream timeout`, want: "upstream timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := response.ParseError([]byte(tt.body)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
