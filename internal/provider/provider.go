// Package provider implements the Provider Adapter (C6): a uniform chat
// interface over heterogeneous LLM backends, normalizing content and
// tool-call shape regardless of upstream encoding.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/agentcore/orchestrator/internal/model"
)

// Params is the subset of {temperature, top_p, top_k, max_tokens, timeout}
// each provider accepts. Unsupported parameters are silently dropped by
// the adapter, not rejected — part of spec.md §4.6's contract.
type Params struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

// StreamChunk is one delta yielded by Stream: either a content fragment
// or a (possibly partial) tool-call fragment. The executor only acts on
// fully-formed tool_calls from the final, non-streaming assistant message
// — streaming tool-call fragments are informational only.
type StreamChunk struct {
	ContentDelta string
	Done         bool
	Final        *model.ChatMessage // set only when Done
}

// Provider is the uniform interface the Graph Executor's chatbot node
// invokes, implemented over tmc/langchaingo's llms.Model.
type Provider interface {
	// Invoke runs one non-streaming turn and returns the full assistant
	// message, including any tool_calls.
	Invoke(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params) (*model.ChatMessage, error)
	// Stream runs one turn, yielding content deltas on ch as they arrive
	// and a final StreamChunk carrying the complete assistant message.
	// ch is closed when the turn ends, successfully or not.
	Stream(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params, ch chan<- StreamChunk) error
}

// ToolSchema is the provider-neutral tool declaration bind_tools advertises.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// toLangchainMessages converts the orchestrator's provider-neutral message
// history into langchaingo's llms.MessageContent, the shape every llms.Model
// implementation in the teacher's dependency accepts.
func toLangchainMessages(messages []model.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case model.RoleUser:
			role = llms.ChatMessageTypeHuman
		case model.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case model.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case model.RoleTool:
			role = llms.ChatMessageTypeTool
		default:
			role = llms.ChatMessageTypeHuman
		}

		if m.Role == model.RoleTool {
			out = append(out, llms.MessageContent{
				Role: role,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{ToolCallID: m.ToolCallID, Name: m.Name, Content: m.Content},
				},
			})
			continue
		}

		parts := []llms.ContentPart{llms.TextPart(m.Content)}
		for _, tc := range m.ToolCalls {
			parts = append(parts, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, llms.MessageContent{Role: role, Parts: parts})
	}
	return out
}

func toLangchainTools(schemas []ToolSchema) []llms.Tool {
	out := make([]llms.Tool, len(schemas))
	for i, s := range schemas {
		out[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}
	return out
}

func callOptions(params Params, toolSchemas []ToolSchema) []llms.CallOption {
	var opts []llms.CallOption
	if params.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(params.Temperature))
	}
	if params.TopP > 0 {
		opts = append(opts, llms.WithTopP(params.TopP))
	}
	if params.TopK > 0 {
		opts = append(opts, llms.WithTopK(params.TopK))
	}
	if params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}
	if len(toolSchemas) > 0 {
		opts = append(opts, llms.WithTools(toLangchainTools(toolSchemas)))
	}
	return opts
}

// extractText normalises a ContentChoice's content into a plain string.
// Some providers return content as a string; langchaingo's ContentChoice
// always surfaces it as .Content, but a choice's .Content can itself be a
// marshaled parts list ([{"type":"text","text":"..."}, ...]) on some
// community backends, in which case the text parts are concatenated.
// OpenAICompatible reads its replies through this helper; Gemini and
// ResponsesBridge read text from their own response shapes.
func extractText(choice *llms.ContentChoice) string {
	if choice == nil {
		return ""
	}
	trimmed := strings.TrimSpace(choice.Content)
	if !strings.HasPrefix(trimmed, "[") {
		return choice.Content
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parts); err != nil {
		return choice.Content
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func toolCallsFromChoice(choice *llms.ContentChoice) []model.ToolCall {
	if choice == nil {
		return nil
	}
	calls := make([]model.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		calls = append(calls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return calls
}

func firstChoice(resp *llms.ContentResponse) (*llms.ContentChoice, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}
	return resp.Choices[0], nil
}
