package provider

import (
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/agentcore/orchestrator/internal/model"
)

func TestToLangchainMessages_MapsRolesAndToolCalls(t *testing.T) {
	msgs := []model.ChatMessage{
		{Role: model.RoleSystem, Content: "be helpful"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "calling a tool", ToolCalls: []model.ToolCall{
			{ID: "call-1", Name: "search", Arguments: `{"q":"go"}`},
		}},
		{Role: model.RoleTool, ToolCallID: "call-1", Name: "search", Content: `{"results":[]}`},
	}

	out := toLangchainMessages(msgs)
	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}
	if out[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("expected system role, got %v", out[0].Role)
	}
	if out[2].Role != llms.ChatMessageTypeAI {
		t.Errorf("expected AI role for assistant message, got %v", out[2].Role)
	}
	if len(out[2].Parts) != 2 {
		t.Fatalf("expected text part + tool call part, got %d parts", len(out[2].Parts))
	}
	if out[3].Role != llms.ChatMessageTypeTool {
		t.Errorf("expected tool role, got %v", out[3].Role)
	}
}

func TestCallOptions_OmitsZeroFields(t *testing.T) {
	opts := callOptions(Params{Temperature: 0.7}, nil)
	if len(opts) != 1 {
		t.Fatalf("expected only temperature to produce a CallOption, got %d", len(opts))
	}
}

func TestCallOptions_IncludesToolsWhenPresent(t *testing.T) {
	opts := callOptions(Params{}, []ToolSchema{{Name: "search"}})
	if len(opts) != 1 {
		t.Fatalf("expected WithTools to produce exactly one CallOption, got %d", len(opts))
	}
}

func TestFirstChoice_ErrorsOnEmptyChoices(t *testing.T) {
	if _, err := firstChoice(&llms.ContentResponse{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
	if _, err := firstChoice(nil); err == nil {
		t.Fatal("expected error for nil response")
	}
}

func TestToolCallsFromChoice_SkipsNilFunctionCalls(t *testing.T) {
	choice := &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{
			{ID: "a", FunctionCall: &llms.FunctionCall{Name: "ok", Arguments: "{}"}},
			{ID: "b", FunctionCall: nil},
		},
	}
	calls := toolCallsFromChoice(choice)
	if len(calls) != 1 || calls[0].Name != "ok" {
		t.Fatalf("expected only the well-formed call, got %+v", calls)
	}
}
