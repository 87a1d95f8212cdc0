package provider

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/agentcore/orchestrator/internal/model"
)

// ResponsesBridge wraps an llms.Model whose only usable entry point is a
// streaming call — some responses-style backends never return a clean
// non-streaming ContentResponse — behind the uniform Provider interface.
// Grounded on teacher prebuilt/chat_agent.go's AsyncChat: a producer
// goroutine drives GenerateContent with WithStreamingFunc and forwards
// chunks into a bounded channel, closing it on completion.
type ResponsesBridge struct {
	model llms.Model
}

func NewResponsesBridge(model llms.Model) *ResponsesBridge {
	return &ResponsesBridge{model: model}
}

// Invoke drains Stream's internal channel to assemble a single reply,
// since the wrapped backend has no non-streaming call of its own.
func (p *ResponsesBridge) Invoke(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params) (*model.ChatMessage, error) {
	ch := make(chan StreamChunk, 100)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Stream(ctx, messages, toolSchemas, params, ch) }()

	var final *model.ChatMessage
	for chunk := range ch {
		if chunk.Done {
			final = chunk.Final
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, fmt.Errorf("responses bridge produced no final message")
	}
	return final, nil
}

func (p *ResponsesBridge) Stream(ctx context.Context, messages []model.ChatMessage, toolSchemas []ToolSchema, params Params, ch chan<- StreamChunk) error {
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
	resp, err := p.model.GenerateContent(ctx, toLangchainMessages(messages), opts...)
	if err != nil {
		return fmt.Errorf("responses bridge stream failed: %w", err)
	}

	var toolCalls []model.ToolCall
	if choice, cErr := firstChoice(resp); cErr == nil {
		toolCalls = toolCallsFromChoice(choice)
	}

	final := &model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   full,
		ToolCalls: toolCalls,
	}
	ch <- StreamChunk{Done: true, Final: final}
	return nil
}
