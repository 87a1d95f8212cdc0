package provider

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/agentcore/orchestrator/internal/model"
)

// OpenAICompatible wraps llms/openai, used for DeepSeek (the default
// base URL) and any other OpenAI-wire-compatible "custom" backend — both
// are the same llms.Model underneath, only baseURL and model code differ.
type OpenAICompatible struct {
	llm *lcopenai.LLM
}

func NewOpenAICompatible(apiKey, baseURL, modelCode string) (*OpenAICompatible, error) {
	opts := []lcopenai.Option{lcopenai.WithToken(apiKey), lcopenai.WithModel(modelCode)}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to construct openai-compatible provider: %w", err)
	}
	return &OpenAICompatible{llm: llm}, nil
}

func (p *OpenAICompatible) Invoke(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params) (*model.ChatMessage, error) {
	resp, err := p.llm.GenerateContent(ctx, toLangchainMessages(messages), callOptions(params, toolSchemas)...)
	if err != nil {
		return nil, fmt.Errorf("openai-compatible invoke failed: %w", err)
	}
	choice, err := firstChoice(resp)
	if err != nil {
		return nil, err
	}
	return &model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   extractText(choice),
		ToolCalls: toolCallsFromChoice(choice),
	}, nil
}

func (p *OpenAICompatible) Stream(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params, ch chan<- StreamChunk) error {
	defer close(ch)

	var full string
	streamingFunc := func(ctx context.Context, chunk []byte) error {
		delta := string(chunk)
		full += delta
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- StreamChunk{ContentDelta: delta}:
			return nil
		}
	}

	opts := append(callOptions(params, toolSchemas), llms.WithStreamingFunc(streamingFunc))
	resp, err := p.llm.GenerateContent(ctx, toLangchainMessages(messages), opts...)
	if err != nil {
		return fmt.Errorf("openai-compatible stream failed: %w", err)
	}

	choice, err := firstChoice(resp)
	if err != nil {
		return err
	}
	final := &model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   full,
		ToolCalls: toolCallsFromChoice(choice),
	}
	ch <- StreamChunk{Done: true, Final: final}
	return nil
}
