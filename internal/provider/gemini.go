package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	genai "google.golang.org/genai"

	"github.com/agentcore/orchestrator/internal/model"
)

// Gemini talks to Google's Generative Language API directly through
// google.golang.org/genai rather than through langchaingo's llms.Model —
// grounded on intelligencedev-manifold/internal/llm/google/client.go's
// Client, whose message/tool conversion this adapts to model.ChatMessage.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, modelCode string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to construct gemini client: %w", err)
	}
	return &Gemini{client: client, model: modelCode}, nil
}

func (p *Gemini) Invoke(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params) (*model.ChatMessage, error) {
	contents, err := toGeminiContents(messages)
	if err != nil {
		return nil, err
	}
	tools, toolCfg := toGeminiTools(toolSchemas)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		Tools:           tools,
		ToolConfig:      toolCfg,
		Temperature:     geminiFloat32Ptr(params.Temperature),
		TopP:            geminiFloat32Ptr(params.TopP),
		TopK:            geminiFloat32Ptr(float64(params.TopK)),
		MaxOutputTokens: int32(params.MaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini invoke failed: %w", err)
	}
	return messageFromGeminiResponse(resp)
}

func (p *Gemini) Stream(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params, ch chan<- StreamChunk) error {
	defer close(ch)

	contents, err := toGeminiContents(messages)
	if err != nil {
		return err
	}
	tools, toolCfg := toGeminiTools(toolSchemas)

	stream := p.client.Models.GenerateContentStream(ctx, p.model, contents, &genai.GenerateContentConfig{
		Tools:           tools,
		ToolConfig:      toolCfg,
		Temperature:     geminiFloat32Ptr(params.Temperature),
		TopP:            geminiFloat32Ptr(params.TopP),
		TopK:            geminiFloat32Ptr(float64(params.TopK)),
		MaxOutputTokens: int32(params.MaxTokens),
	})

	var full strings.Builder
	var toolCalls []model.ToolCall
	for resp, err := range stream {
		if err != nil {
			return fmt.Errorf("gemini stream failed: %w", err)
		}
		msg, skip := messageDeltaFromGeminiResponse(resp)
		if skip {
			continue
		}
		if msg.Content != "" {
			full.WriteString(msg.Content)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- StreamChunk{ContentDelta: msg.Content}:
			}
		}
		toolCalls = append(toolCalls, msg.ToolCalls...)
	}

	ch <- StreamChunk{Done: true, Final: &model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   full.String(),
		ToolCalls: toolCalls,
	}}
	return nil
}

func geminiFloat32Ptr(v float64) *float32 {
	if v <= 0 {
		return nil
	}
	f := float32(v)
	return &f
}

func toGeminiContents(messages []model.ChatMessage) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	toolNamesByID := make(map[string]string)
	for _, m := range messages {
		switch m.Role {
		case model.RoleUser, model.RoleSystem:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case model.RoleAssistant:
			parts := []*genai.Part{}
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				toolNamesByID[tc.ID] = tc.Name
				var args map[string]any
				if tc.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Arguments), &args)
				}
				p := genai.NewPartFromFunctionCall(tc.Name, args)
				p.FunctionCall.ID = tc.ID
				parts = append(parts, p)
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case model.RoleTool:
			name := toolNamesByID[m.ToolCallID]
			if name == "" {
				name = m.Name
			}
			respMap := map[string]any{}
			if m.Content != "" {
				if err := json.Unmarshal([]byte(m.Content), &respMap); err != nil {
					respMap = map[string]any{"output": m.Content}
				}
			}
			part := genai.NewPartFromFunctionResponse(name, respMap)
			part.FunctionResponse.ID = m.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			return nil, fmt.Errorf("unsupported role for gemini provider: %s", m.Role)
		}
	}
	return contents, nil
}

func toGeminiTools(schemas []ToolSchema) ([]*genai.Tool, *genai.ToolConfig) {
	if len(schemas) == 0 {
		return nil, nil
	}
	fd := make([]*genai.FunctionDeclaration, len(schemas))
	for i, s := range schemas {
		fd[i] = &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.Parameters,
		}
	}
	cfg := &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
	}
	return []*genai.Tool{{FunctionDeclarations: fd}}, cfg
}

func messageFromGeminiResponse(resp *genai.GenerateContentResponse) (*model.ChatMessage, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return &model.ChatMessage{Role: model.RoleAssistant}, nil
	}

	var text strings.Builder
	var calls []model.ToolCall
	callIdx := 0
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			callIdx++
			id := part.FunctionCall.ID
			if id == "" {
				id = "call-" + strconv.Itoa(callIdx)
			}
			calls = append(calls, model.ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: string(args)})
		}
	}
	return &model.ChatMessage{Role: model.RoleAssistant, Content: text.String(), ToolCalls: calls}, nil
}

// messageDeltaFromGeminiResponse mirrors messageFromGeminiResponse but
// tolerates the empty/nil intermediate chunks streaming produces.
func messageDeltaFromGeminiResponse(resp *genai.GenerateContentResponse) (model.ChatMessage, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return model.ChatMessage{}, true
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return model.ChatMessage{}, true
	}

	var text strings.Builder
	var calls []model.ToolCall
	callIdx := 0
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			callIdx++
			id := part.FunctionCall.ID
			if id == "" {
				id = "call-" + strconv.Itoa(callIdx)
			}
			calls = append(calls, model.ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: string(args)})
		}
	}
	if text.Len() == 0 && len(calls) == 0 {
		return model.ChatMessage{}, true
	}
	return model.ChatMessage{Role: model.RoleAssistant, Content: text.String(), ToolCalls: calls}, false
}
